package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

// UserRepository defines the interface for user-related storage operations.
// Implementations wrap driver failures with ErrPersistence and report missing
// ids with ErrNotFound.
type UserRepository interface {
	Add(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, u *entity.User) error
	Get(ctx context.Context, id string) (*entity.User, error)
	// GetAll returns every user ordered by id.
	GetAll(ctx context.Context) ([]*entity.User, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
