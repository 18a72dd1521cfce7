package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	"github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

const userColumns = `id, name, password_hash, email, level, login_count, recommend_count, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Add(ctx context.Context, u *entity.User) error {
	const op = "postgres.UserRepository.Add"
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, password_hash, email, level, login_count, recommend_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Password, u.Email, int(u.Level), u.LoginCount, u.RecommendCount)

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	const op = "postgres.UserRepository.Update"
	u.UpdatedAt = time.Now()

	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET name = $1, password_hash = $2, email = $3, level = $4,
		    login_count = $5, recommend_count = $6, updated_at = $7
		WHERE id = $8
	`, u.Name, u.Password, u.Email, int(u.Level), u.LoginCount, u.RecommendCount, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w: %s", op, repository.ErrNotFound, u.ID)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*entity.User, error) {
	const op = "postgres.UserRepository.Get"
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w: %s", op, repository.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return u, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]*entity.User, error) {
	const op = "postgres.UserRepository.GetAll"
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	defer rows.Close()

	users := []*entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return users, nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) error {
	const op = "postgres.UserRepository.DeleteAll"
	if _, err := r.db.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	const op = "postgres.UserRepository.Count"
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}
	return n, nil
}

// scanUser keeps the stored level as-is; an out-of-range value surfaces later
// as entity.ErrUnknownLevel instead of being coerced here.
func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var level int
	if err := row.Scan(&u.ID, &u.Name, &u.Password, &u.Email, &level,
		&u.LoginCount, &u.RecommendCount, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Level = entity.Level(level)
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
