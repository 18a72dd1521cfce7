package repository

import (
	"context"
	"errors"
)

var ErrTransaction = errors.New("transaction failure")

// Transactor opens transaction scopes. Failures are wrapped with ErrTransaction.
type Transactor interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open transaction handle. Every write issued through Users() becomes
// visible on Commit and is discarded on Rollback.
type Tx interface {
	Users() UserRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
