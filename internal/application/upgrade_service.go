package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	repo "github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

// LevelUpgrader runs one level-upgrade batch over every account.
type LevelUpgrader interface {
	UpgradeAll(ctx context.Context) (*UpgradeReport, error)
}

type UpgradedUser struct {
	ID    string       `json:"id"`
	Email string       `json:"email"`
	From  entity.Level `json:"from"`
	To    entity.Level `json:"to"`
	// NotifyErr is set only in NotifyLogAndContinue mode when the dispatch failed.
	NotifyErr string `json:"notify_error,omitempty"`
}

// UpgradeReport describes a completed batch. Upgraded is in processing order.
type UpgradeReport struct {
	Evaluated int            `json:"evaluated"`
	Upgraded  []UpgradedUser `json:"upgraded"`
}

func (r *UpgradeReport) Count() int { return len(r.Upgraded) }

func (r *UpgradeReport) IDs() []string {
	ids := make([]string, 0, len(r.Upgraded))
	for _, u := range r.Upgraded {
		ids = append(ids, u.ID)
	}
	return ids
}

// UpgradeService evaluates every account, persists the ones that move up and
// notifies them. It knows nothing about transactions: an error is returned as
// soon as it happens, and undoing earlier writes is left to the caller.
type UpgradeService struct {
	Repo       repo.UserRepository
	Policy     UpgradePolicy
	Dispatcher NotificationDispatcher
	NotifyMode NotifyFailureMode
	Logger     *logrus.Logger
}

func NewUpgradeService(r repo.UserRepository, policy UpgradePolicy, dispatcher NotificationDispatcher, mode NotifyFailureMode, logger *logrus.Logger) *UpgradeService {
	return &UpgradeService{
		Repo:       r,
		Policy:     policy,
		Dispatcher: dispatcher,
		NotifyMode: mode,
		Logger:     logger,
	}
}

func (s *UpgradeService) UpgradeAll(ctx context.Context) (*UpgradeReport, error) {
	const op = "upgrade.UpgradeAll"

	users, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &UpgradeReport{Evaluated: len(users), Upgraded: []UpgradedUser{}}
	for _, u := range users {
		ok, err := s.Policy.IsEligible(u.Level, u.LoginCount, u.RecommendCount)
		if err != nil {
			return nil, fmt.Errorf("%s: user %s: %w", op, u.ID, err)
		}
		if !ok {
			continue
		}
		up, err := s.upgrade(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("%s: user %s: %w", op, u.ID, err)
		}
		report.Upgraded = append(report.Upgraded, up)
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"evaluated": report.Evaluated,
			"upgraded":  report.Count(),
		}).Info("level upgrade batch finished")
	}
	return report, nil
}

func (s *UpgradeService) upgrade(ctx context.Context, u *entity.User) (UpgradedUser, error) {
	from := u.Level
	next, err := s.Policy.NextLevel(from)
	if err != nil {
		return UpgradedUser{}, err
	}
	u.Level = next
	if err := s.Repo.Update(ctx, u); err != nil {
		return UpgradedUser{}, err
	}

	up := UpgradedUser{ID: u.ID, Email: u.Email, From: from, To: next}
	if s.Dispatcher == nil {
		return up, nil
	}
	if err := s.Dispatcher.Send(ctx, u.Email, u); err != nil {
		if s.NotifyMode != NotifyLogAndContinue {
			return UpgradedUser{}, err
		}
		if !errors.Is(err, ErrNotification) {
			err = fmt.Errorf("%w: %w", ErrNotification, err)
		}
		up.NotifyErr = err.Error()
		if s.Logger != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id": u.ID,
				"level":   next.String(),
			}).Warn("upgrade notification failed, level change kept")
		}
	}
	return up, nil
}

var _ LevelUpgrader = (*UpgradeService)(nil)
