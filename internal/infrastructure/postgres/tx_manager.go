package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

// TxManager opens pgx transactions on the pool. Isolation is the server default
// (READ COMMITTED) unless overridden with WithIsoLevel.
type TxManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

func (m *TxManager) WithIsoLevel(level pgx.TxIsoLevel) *TxManager {
	c := *m
	c.opts.IsoLevel = level
	return &c
}

func (m *TxManager) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("postgres.Begin: %w: %w", repository.ErrTransaction, err)
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Users() repository.UserRepository {
	return NewUserRepository(t.tx)
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.Commit: %w: %w", repository.ErrTransaction, err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("postgres.Rollback: %w: %w", repository.ErrTransaction, err)
	}
	return nil
}

var _ repository.Transactor = (*TxManager)(nil)
