package router

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
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-level-upgrade/config"
	"github.com/oksasatya/go-level-upgrade/internal/container"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/memory"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
	"github.com/oksasatya/go-level-upgrade/pkg/validation"
)

func setupEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	container.Reset()
	t.Cleanup(container.Reset)

	cfg := &config.Config{
		AdminUserID:         "admin",
		NotifyFailureMode:   "abort",
		NotifyTransport:     "log",
		MailSendEnabled:     true,
		UpgradeTimeout:      time.Minute,
		DebugMetricsEnabled: true,
		CORSAllowedOrigins:  "http://localhost:3000",
	}
	jwt := helpers.NewJWTManager("secret", time.Hour)
	container.SetConfig(cfg)
	container.SetJWT(jwt)
	container.SetMemoryStore(memory.NewStore())

	engine := NewEngine(cfg)
	reg := NewRegistry(engine)
	require.NoError(t, InitModules(reg))
	reg.RegisterAll()

	tok, _, err := jwt.GenerateAccessToken("admin")
	require.NoError(t, err)
	return engine, tok
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_EndToEnd(t *testing.T) {
	engine, tok := setupEngine(t)

	for _, u := range []map[string]any{
		{"id": "u1", "email": "a@example.com", "password": "password1", "login_count": 49},
		{"id": "u2", "email": "b@example.com", "password": "password1", "login_count": 50},
		{"id": "u4", "email": "d@example.com", "password": "password1", "level": "silver", "recommend_count": 30},
	} {
		w := call(t, engine, http.MethodPost, "/api/users", tok, u)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}

	w := call(t, engine, http.MethodPost, "/api/upgrades", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data struct {
			Report struct {
				Evaluated int `json:"evaluated"`
				Upgraded  []struct {
					ID string `json:"id"`
					To string `json:"to"`
				} `json:"upgraded"`
			} `json:"report"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 3, env.Data.Report.Evaluated)
	require.Len(t, env.Data.Report.Upgraded, 2)
	assert.Equal(t, "u2", env.Data.Report.Upgraded[0].ID)
	assert.Equal(t, "SILVER", env.Data.Report.Upgraded[0].To)
	assert.Equal(t, "GOLD", env.Data.Report.Upgraded[1].To)

	w = call(t, engine, http.MethodGet, "/api/users/u4", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"level":"GOLD"`)

	w = call(t, engine, http.MethodPost, "/api/users/u4/notify", tok, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = call(t, engine, http.MethodGet, "/api/debug/vars", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "upgrade_batches_total")
}

func TestRouter_AdminOnly(t *testing.T) {
	engine, _ := setupEngine(t)

	for _, path := range []string{"/api/users", "/api/users/count", "/api/upgrades/last"} {
		w := call(t, engine, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := call(t, engine, http.MethodPost, "/api/upgrades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInitModules_NoStore(t *testing.T) {
	container.Reset()
	t.Cleanup(container.Reset)
	container.SetConfig(&config.Config{})

	reg := NewRegistry(gin.New())
	assert.ErrorIs(t, InitModules(reg), container.ErrNoStore)
}

func TestRouter_Healthz(t *testing.T) {
	engine, _ := setupEngine(t)

	w := call(t, engine, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Meta struct {
			Modules []string `json:"modules"`
			Probes  []string `json:"probes"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, []string{"users", "upgrades", "debug"}, env.Meta.Modules)
	assert.Equal(t, []string{"store"}, env.Meta.Probes)
}

func TestRegistry_FailingProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(gin.New())
	reg.Probe("db", func(context.Context) error { return errors.New("down") })
	reg.RegisterAll()

	w := call(t, reg.Engine, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"db":"down"`)
}

type namedModule string

func (m namedModule) Name() string              { return string(m) }
func (m namedModule) Register(*gin.RouterGroup) {}

func TestRegistry_DuplicateModule(t *testing.T) {
	reg := NewRegistry(gin.New())
	reg.Add(namedModule("users"))
	assert.Panics(t, func() { reg.Add(namedModule("users")) })
}
