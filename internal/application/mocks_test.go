package application

import (
	"context"
	"math"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	repo "github.com/oksasatya/go-level-upgrade/internal/domain/repository"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Add(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, u *entity.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) Get(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// recordingDispatcher keeps recipients in call order and can fail for one address.
type recordingDispatcher struct {
	mu         sync.Mutex
	recipients []string
	failFor    string
	err        error
}

func (d *recordingDispatcher) Send(_ context.Context, recipient string, _ *entity.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recipients = append(d.recipients, recipient)
	if d.failFor != "" && recipient == d.failFor {
		return d.err
	}
	return nil
}

// failingRepo passes everything through to the wrapped repository except
// Update on one id, which fails with err.
type failingRepo struct {
	repo.UserRepository
	failID string
	err    error
}

func (r *failingRepo) Update(ctx context.Context, u *entity.User) error {
	if u.ID == r.failID {
		return r.err
	}
	return r.UserRepository.Update(ctx, u)
}

// fixtureUsers are five accounts around the default thresholds, ordered by id.
func fixtureUsers() []*entity.User {
	return []*entity.User{
		{ID: "u1", Name: "Hoon", Password: "p1234", Email: "a@example.com", Level: entity.LevelBasic, LoginCount: DefaultMinLoginCountForSilver - 1, RecommendCount: 0},
		{ID: "u2", Name: "You", Password: "p1234", Email: "b@example.com", Level: entity.LevelBasic, LoginCount: DefaultMinLoginCountForSilver, RecommendCount: 0},
		{ID: "u3", Name: "Min", Password: "p1234", Email: "c@example.com", Level: entity.LevelSilver, LoginCount: 60, RecommendCount: DefaultMinRecommendCountForGold - 1},
		{ID: "u4", Name: "Young", Password: "p1234", Email: "d@example.com", Level: entity.LevelSilver, LoginCount: 60, RecommendCount: DefaultMinRecommendCountForGold},
		{ID: "u5", Name: "Sun", Password: "p1234", Email: "e@example.com", Level: entity.LevelGold, LoginCount: 100, RecommendCount: math.MaxInt32},
	}
}
