package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	"github.com/oksasatya/go-level-upgrade/internal/domain/repository"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/cache"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/memory"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/search"
	"github.com/oksasatya/go-level-upgrade/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func fixtures() []*entity.User {
	return []*entity.User{
		{ID: "u1", Email: "a@example.com", Level: entity.LevelBasic, LoginCount: 49},
		{ID: "u2", Email: "b@example.com", Level: entity.LevelBasic, LoginCount: 50},
		{ID: "u3", Email: "c@example.com", Level: entity.LevelSilver, LoginCount: 60, RecommendCount: 29},
		{ID: "u4", Email: "d@example.com", Level: entity.LevelSilver, LoginCount: 60, RecommendCount: 30},
		{ID: "u5", Email: "e@example.com", Level: entity.LevelGold, LoginCount: 100, RecommendCount: 1 << 30},
	}
}

func seeded(t *testing.T) (*memory.Store, *application.UserService) {
	t.Helper()
	store := memory.NewStore()
	svc := application.NewUserService(store.Users(), nil)
	for _, u := range fixtures() {
		require.NoError(t, svc.Add(context.Background(), u))
	}
	return store, svc
}

func userRouter(svc *application.UserService) *gin.Engine {
	h := NewUserHandler(svc, nil)
	r := gin.New()
	r.POST("/users", h.Create)
	r.GET("/users", h.List)
	r.GET("/users/count", h.Count)
	r.GET("/users/:id", h.Get)
	return r
}

func TestUserHandler_Create(t *testing.T) {
	store := memory.NewStore()
	r := userRouter(application.NewUserService(store.Users(), nil))

	w, env := do(t, r, http.MethodPost, "/users", map[string]any{
		"email": "New@Example.com", "password": "password1", "login_count": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	var got userView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, entity.LevelBasic, got.Level)
	assert.NotContains(t, w.Body.String(), "password")

	stored, err := store.Users().Get(context.Background(), got.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "password1", stored.Password)
	assert.Equal(t, 3, stored.LoginCount)
}

func TestUserHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{name: "missing email", body: map[string]any{"password": "password1"}, wantField: "email"},
		{name: "short password", body: map[string]any{"email": "a@example.com", "password": "x"}, wantField: "password"},
		{name: "bad level", body: map[string]any{"email": "a@example.com", "password": "password1", "level": "PLATINUM"}, wantField: "level"},
		{name: "negative counter", body: map[string]any{"email": "a@example.com", "password": "password1", "recommend_count": -1}, wantField: "recommend_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := userRouter(application.NewUserService(memory.NewStore().Users(), nil))
			w, env := do(t, r, http.MethodPost, "/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var details map[string]string
			require.NoError(t, json.Unmarshal(env.Error, &details))
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestUserHandler_CreateDuplicate(t *testing.T) {
	_, svc := seeded(t)
	w, _ := do(t, userRouter(svc), http.MethodPost, "/users", map[string]any{
		"id": "u1", "email": "a@example.com", "password": "password1",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUserHandler_ListCountGet(t *testing.T) {
	_, svc := seeded(t)
	r := userRouter(svc)

	w, env := do(t, r, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []userView
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 5)
	assert.Equal(t, "u1", list[0].ID)
	assert.Equal(t, entity.LevelGold, list[4].Level)

	w, env = do(t, r, http.MethodGet, "/users/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":5}`, string(env.Data))

	w, env = do(t, r, http.MethodGet, "/users/u4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"level":"SILVER"`)

	w, _ = do(t, r, http.MethodGet, "/users/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type MockReports struct {
	mock.Mock
}

func (m *MockReports) Save(ctx context.Context, run cache.LastRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockReports) Last(ctx context.Context) (*cache.LastRun, bool, error) {
	args := m.Called(ctx)
	run, _ := args.Get(0).(*cache.LastRun)
	return run, args.Bool(1), args.Error(2)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexReport(ctx context.Context, report *application.UpgradeReport, at time.Time) (int, error) {
	args := m.Called(ctx, report, at)
	return args.Int(0), args.Error(1)
}

func (m *MockIndexer) SearchByLevel(ctx context.Context, level string, size int) ([]search.UpgradeDoc, error) {
	args := m.Called(ctx, level, size)
	docs, _ := args.Get(0).([]search.UpgradeDoc)
	return docs, args.Error(1)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, report *application.UpgradeReport, at time.Time) (string, error) {
	args := m.Called(ctx, report, at)
	return args.String(0), args.Error(1)
}

type failOn struct {
	repository.UserRepository
	id string
}

func (f failOn) Update(ctx context.Context, u *entity.User) error {
	if u.ID == f.id {
		return errors.New("disk full")
	}
	return f.UserRepository.Update(ctx, u)
}

func txUpgrader(store *memory.Store, failID string) *application.TxUpgradeService {
	policy := application.NewLevelPolicy(application.DefaultPolicyConfig())
	return application.NewTxUpgradeService(store, func(users repository.UserRepository) application.LevelUpgrader {
		if failID != "" {
			users = failOn{users, failID}
		}
		return application.NewUpgradeService(users, policy, nil, application.NotifyAbort, nil)
	}, nil)
}

func upgradeRouter(h *UpgradeHandler) *gin.Engine {
	r := gin.New()
	r.POST("/upgrades", h.Run)
	r.GET("/upgrades/last", h.Last)
	r.GET("/upgrades/search", h.Search)
	return r
}

func TestUpgradeHandler_Run(t *testing.T) {
	store, svc := seeded(t)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	reports := new(MockReports)
	reports.On("Save", mock.Anything, mock.MatchedBy(func(run cache.LastRun) bool {
		return run.ArchiveURL == "gs://r/1.json" && run.FinishedAt.Equal(at) &&
			assert.ObjectsAreEqual([]string{"u2", "u4"}, run.Report.IDs())
	})).Return(nil).Once()
	indexer := new(MockIndexer)
	indexer.On("IndexReport", mock.Anything, mock.Anything, at).Return(2, nil).Once()
	archiver := new(MockArchiver)
	archiver.On("Archive", mock.Anything, mock.Anything, at).Return("gs://r/1.json", nil).Once()

	h := NewUpgradeHandler(txUpgrader(store, ""), reports, indexer, archiver, time.Minute, nil)
	h.now = func() time.Time { return at }

	before := upgradeUsersTotal.Value()
	w, env := do(t, upgradeRouter(h), http.MethodPost, "/upgrades", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), env.Meta["upgraded"])
	assert.Equal(t, before+2, upgradeUsersTotal.Value())

	u2, err := svc.Get(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, entity.LevelSilver, u2.Level)

	reports.AssertExpectations(t)
	indexer.AssertExpectations(t)
	archiver.AssertExpectations(t)
}

func TestUpgradeHandler_RunFailureRollsBackAndPublishesNothing(t *testing.T) {
	store, svc := seeded(t)
	reports := new(MockReports)
	indexer := new(MockIndexer)
	archiver := new(MockArchiver)

	h := NewUpgradeHandler(txUpgrader(store, "u4"), reports, indexer, archiver, time.Minute, nil)

	failedBefore := upgradeBatchesFailed.Value()
	w, env := do(t, upgradeRouter(h), http.MethodPost, "/upgrades", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Error), "disk full")
	assert.Equal(t, failedBefore+1, upgradeBatchesFailed.Value())

	u2, err := svc.Get(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, entity.LevelBasic, u2.Level)

	reports.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	indexer.AssertNotCalled(t, "IndexReport", mock.Anything, mock.Anything, mock.Anything)
	archiver.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpgradeHandler_RunBestEffortSideEffects(t *testing.T) {
	store, _ := seeded(t)
	reports := new(MockReports)
	reports.On("Save", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
	indexer := new(MockIndexer)
	indexer.On("IndexReport", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("es down")).Once()
	archiver := new(MockArchiver)
	archiver.On("Archive", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("gcs down")).Once()

	h := NewUpgradeHandler(txUpgrader(store, ""), reports, indexer, archiver, 0, nil)
	w, _ := do(t, upgradeRouter(h), http.MethodPost, "/upgrades", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpgradeHandler_RunWithoutOptionalSinks(t *testing.T) {
	store, _ := seeded(t)
	h := NewUpgradeHandler(txUpgrader(store, ""), nil, nil, nil, time.Minute, nil)
	r := upgradeRouter(h)

	w, _ := do(t, r, http.MethodPost, "/upgrades", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/upgrades/last", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, env := do(t, r, http.MethodGet, "/upgrades/search?level=gold", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestUpgradeHandler_Last(t *testing.T) {
	run := &cache.LastRun{FinishedAt: time.Now().UTC(), Report: &application.UpgradeReport{Evaluated: 5, Upgraded: []application.UpgradedUser{}}}

	tests := []struct {
		name       string
		setupMocks func(*MockReports)
		wantCode   int
	}{
		{
			name:       "cached",
			setupMocks: func(m *MockReports) { m.On("Last", mock.Anything).Return(run, true, nil).Once() },
			wantCode:   http.StatusOK,
		},
		{
			name:       "empty",
			setupMocks: func(m *MockReports) { m.On("Last", mock.Anything).Return(nil, false, nil).Once() },
			wantCode:   http.StatusNotFound,
		},
		{
			name:       "cache error",
			setupMocks: func(m *MockReports) { m.On("Last", mock.Anything).Return(nil, false, errors.New("redis down")).Once() },
			wantCode:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := new(MockReports)
			tt.setupMocks(reports)
			h := NewUpgradeHandler(nil, reports, nil, nil, 0, nil)
			w, _ := do(t, upgradeRouter(h), http.MethodGet, "/upgrades/last", nil)
			assert.Equal(t, tt.wantCode, w.Code)
			reports.AssertExpectations(t)
		})
	}
}

func TestUpgradeHandler_Search(t *testing.T) {
	indexer := new(MockIndexer)
	indexer.On("SearchByLevel", mock.Anything, "GOLD", 5).
		Return([]search.UpgradeDoc{{ID: "u4", Level: "GOLD"}}, nil).Once()
	h := NewUpgradeHandler(nil, nil, indexer, nil, 0, nil)
	r := upgradeRouter(h)

	w, env := do(t, r, http.MethodGet, "/upgrades/search?level=gold&size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"id":"u4"`)

	w, _ = do(t, r, http.MethodGet, "/upgrades/search?level=bronze", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	indexer.AssertExpectations(t)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, recipient string, u *entity.User) error {
	return m.Called(ctx, recipient, u).Error(0)
}

func TestNotifyHandler_Resend(t *testing.T) {
	_, svc := seeded(t)

	tests := []struct {
		name       string
		id         string
		setupMocks func(*MockDispatcher)
		wantCode   int
	}{
		{
			name: "sent",
			id:   "u3",
			setupMocks: func(m *MockDispatcher) {
				m.On("Send", mock.Anything, "c@example.com", mock.AnythingOfType("*entity.User")).Return(nil).Once()
			},
			wantCode: http.StatusAccepted,
		},
		{
			name: "transport failure",
			id:   "u3",
			setupMocks: func(m *MockDispatcher) {
				m.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(application.ErrNotification).Once()
			},
			wantCode: http.StatusBadGateway,
		},
		{
			name:       "unknown user",
			id:         "nope",
			setupMocks: func(*MockDispatcher) {},
			wantCode:   http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockDispatcher)
			tt.setupMocks(d)
			h := NewNotifyHandler(svc, d, nil)
			r := gin.New()
			r.POST("/users/:id/notify", h.Resend)

			w, _ := do(t, r, http.MethodPost, "/users/"+tt.id+"/notify", nil)
			assert.Equal(t, tt.wantCode, w.Code)
			d.AssertExpectations(t)
		})
	}
}
