package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	repo "github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidUser  = errors.New("invalid user")
)

// UserService is the account creation and lookup path.
type UserService struct {
	Repo   repo.UserRepository
	Logger *logrus.Logger
}

func NewUserService(r repo.UserRepository, logger *logrus.Logger) *UserService {
	return &UserService{Repo: r, Logger: logger}
}

// Add stores a new account. An unset level becomes BASIC and an empty id gets a fresh UUID.
func (s *UserService) Add(ctx context.Context, u *entity.User) error {
	if u == nil || strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if u.LoginCount < 0 || u.RecommendCount < 0 {
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidUser)
	}
	if u.Level == 0 {
		u.Level = entity.LevelBasic
	}
	if !u.Level.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidUser, entity.ErrUnknownLevel)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := s.Repo.Add(ctx, u); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("add user failed")
		}
		return err
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrUserNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.GetAll(ctx)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.Repo.Count(ctx)
}

func (s *UserService) DeleteAll(ctx context.Context) error {
	return s.Repo.DeleteAll(ctx)
}
