// Package memory is an in-process user store with snapshot transactions.
// It backs the test suites and APP_STORE=memory local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	"github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

// Store holds committed users. Transactions are serialized: Begin waits until
// the previous transaction has committed or rolled back, or ctx is done.
// Writes made outside a transaction commit at once and survive a concurrent
// transaction's commit, which applies only the ids it wrote.
type Store struct {
	mu    sync.RWMutex
	users map[string]*entity.User

	txSlot chan struct{}
}

func NewStore() *Store {
	return &Store{users: map[string]*entity.User{}, txSlot: make(chan struct{}, 1)}
}

// Users returns a repository that writes straight to committed state.
func (s *Store) Users() repository.UserRepository {
	return &userRepo{store: s}
}

func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory.Begin: %w: %w", repository.ErrTransaction, err)
	}
	select {
	case s.txSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("memory.Begin: %w: %w", repository.ErrTransaction, ctx.Err())
	}

	s.mu.RLock()
	working := make(map[string]*entity.User, len(s.users))
	for id, u := range s.users {
		working[id] = u.Clone()
	}
	s.mu.RUnlock()

	return &tx{store: s, users: working, dirty: map[string]struct{}{}}, nil
}

type tx struct {
	store *Store
	users map[string]*entity.User
	mu    sync.RWMutex
	done  bool

	// dirty holds ids written in this transaction; deletedAll is set by DeleteAll.
	dirty      map[string]struct{}
	deletedAll bool
}

func (t *tx) release() {
	t.done = true
	<-t.store.txSlot
}

func (t *tx) Users() repository.UserRepository {
	return &userRepo{tx: t}
}

func (t *tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("memory.Commit: %w: transaction already closed", repository.ErrTransaction)
	}
	if err := ctx.Err(); err != nil {
		// a commit that cannot run leaves the transaction open for Rollback
		return fmt.Errorf("memory.Commit: %w: %w", repository.ErrTransaction, err)
	}
	t.store.mu.Lock()
	if t.deletedAll {
		t.store.users = map[string]*entity.User{}
	}
	for id := range t.dirty {
		if u, ok := t.users[id]; ok {
			t.store.users[id] = u.Clone()
		}
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("memory.Rollback: %w: transaction already closed", repository.ErrTransaction)
	}
	t.users = nil
	t.dirty = nil
	t.release()
	return nil
}

// userRepo runs against either the committed map or a transaction's working copy.
type userRepo struct {
	store *Store
	tx    *tx
}

func (r *userRepo) read(fn func(map[string]*entity.User) error) error {
	if r.tx != nil {
		r.tx.mu.RLock()
		defer r.tx.mu.RUnlock()
		if r.tx.done {
			return fmt.Errorf("%w: transaction already closed", repository.ErrPersistence)
		}
		return fn(r.tx.users)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.users)
}

// touch marks id as written by the transaction; a no-op outside one.
// Callers hold the write lock.
func (r *userRepo) touch(id string) {
	if r.tx != nil {
		r.tx.dirty[id] = struct{}{}
	}
}

func (r *userRepo) write(fn func(map[string]*entity.User) error) error {
	if r.tx != nil {
		r.tx.mu.Lock()
		defer r.tx.mu.Unlock()
		if r.tx.done {
			return fmt.Errorf("%w: transaction already closed", repository.ErrPersistence)
		}
		return fn(r.tx.users)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.users)
}

func (r *userRepo) Add(ctx context.Context, u *entity.User) error {
	const op = "memory.Add"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return r.write(func(m map[string]*entity.User) error {
		if _, ok := m[u.ID]; ok {
			return fmt.Errorf("%s: %w: duplicate id %q", op, repository.ErrPersistence, u.ID)
		}
		now := time.Now()
		u.CreatedAt, u.UpdatedAt = now, now
		m[u.ID] = u.Clone()
		r.touch(u.ID)
		return nil
	})
}

func (r *userRepo) Update(ctx context.Context, u *entity.User) error {
	const op = "memory.Update"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return r.write(func(m map[string]*entity.User) error {
		cur, ok := m[u.ID]
		if !ok {
			return fmt.Errorf("%s: %w: %s", op, repository.ErrNotFound, u.ID)
		}
		u.CreatedAt = cur.CreatedAt
		u.UpdatedAt = time.Now()
		m[u.ID] = u.Clone()
		r.touch(u.ID)
		return nil
	})
}

func (r *userRepo) Get(ctx context.Context, id string) (*entity.User, error) {
	const op = "memory.Get"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	var out *entity.User
	err := r.read(func(m map[string]*entity.User) error {
		u, ok := m[id]
		if !ok {
			return fmt.Errorf("%s: %w: %s", op, repository.ErrNotFound, id)
		}
		out = u.Clone()
		return nil
	})
	return out, err
}

func (r *userRepo) GetAll(ctx context.Context) ([]*entity.User, error) {
	const op = "memory.GetAll"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	out := []*entity.User{}
	err := r.read(func(m map[string]*entity.User) error {
		for _, u := range m {
			out = append(out, u.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepo) DeleteAll(ctx context.Context) error {
	const op = "memory.DeleteAll"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return r.write(func(m map[string]*entity.User) error {
		for id := range m {
			delete(m, id)
		}
		if r.tx != nil {
			r.tx.deletedAll = true
			clear(r.tx.dirty)
		}
		return nil
	})
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	const op = "memory.Count"
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	n := 0
	err := r.read(func(m map[string]*entity.User) error {
		n = len(m)
		return nil
	})
	return n, err
}

var (
	_ repository.Transactor     = (*Store)(nil)
	_ repository.UserRepository = (*userRepo)(nil)
)
