package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

// UpgraderFactory builds the inner batch over a repository bound to an open transaction.
type UpgraderFactory func(users repo.UserRepository) LevelUpgrader

// TxUpgradeService wraps a LevelUpgrader in a transaction: every write issued
// during one UpgradeAll call is committed together or rolled back together.
type TxUpgradeService struct {
	Tx     repo.Transactor
	Inner  UpgraderFactory
	Logger *logrus.Logger
}

func NewTxUpgradeService(tx repo.Transactor, inner UpgraderFactory, logger *logrus.Logger) *TxUpgradeService {
	return &TxUpgradeService{Tx: tx, Inner: inner, Logger: logger}
}

func (s *TxUpgradeService) UpgradeAll(ctx context.Context) (report *UpgradeReport, err error) {
	tx, err := s.Tx.Begin(ctx)
	if err != nil {
		return nil, err
	}

	// Rollback must not inherit the caller's deadline; a timed-out batch still has to be undone.
	rbCtx := context.WithoutCancel(ctx)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(rbCtx)
			panic(p)
		}
	}()

	report, err = s.Inner(tx.Users()).UpgradeAll(ctx)
	if err != nil {
		if rbErr := tx.Rollback(rbCtx); rbErr != nil {
			s.logError("rollback failed", rbErr)
			return nil, errors.Join(err, rbErr)
		}
		s.logError("level upgrade batch rolled back", err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(rbCtx)
		s.logError("commit failed", err)
		return nil, err
	}
	return report, nil
}

func (s *TxUpgradeService) logError(msg string, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).Error(msg)
}

var _ LevelUpgrader = (*TxUpgradeService)(nil)
