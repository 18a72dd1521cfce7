package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-level-upgrade/internal/interface/http"
	"github.com/oksasatya/go-level-upgrade/internal/interface/middleware"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
)

type UpgradeModule struct {
	Handler       *handlers.UpgradeHandler
	JWT           *helpers.JWTManager
	AdminID       string
	Redis         *redis.Client
	RunsPerMinute int
}

func NewUpgradeModule(h *handlers.UpgradeHandler, jwt *helpers.JWTManager, adminID string, rdb *redis.Client, runsPerMinute int) *UpgradeModule {
	return &UpgradeModule{Handler: h, JWT: jwt, AdminID: adminID, Redis: rdb, RunsPerMinute: runsPerMinute}
}

func (m *UpgradeModule) Name() string { return "upgrades" }

func (m *UpgradeModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/upgrades")
	auth.Use(middleware.AdminAuth(m.JWT, m.AdminID))
	{
		// A batch locks every account row; private callers (cron) are not limited.
		runLimiter := middleware.RateLimit(m.Redis, m.RunsPerMinute, time.Minute, middleware.KeyByUserID(), middleware.AllowPrivateIP())
		auth.POST("", runLimiter, m.Handler.Run)
		auth.GET("/last", m.Handler.Last)
		auth.GET("/search", m.Handler.Search)
	}
}
