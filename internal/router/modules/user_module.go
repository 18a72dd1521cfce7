package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-level-upgrade/internal/interface/http"
	"github.com/oksasatya/go-level-upgrade/internal/interface/middleware"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
)

// UserModule wires account routes. All of them are admin only:
// POST /users, GET /users, GET /users/count, GET /users/:id, POST /users/:id/notify
type UserModule struct {
	Handler *handlers.UserHandler
	Notify  *handlers.NotifyHandler
	JWT     *helpers.JWTManager
	AdminID string
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, n *handlers.NotifyHandler, jwt *helpers.JWTManager, adminID string, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Notify: n, JWT: jwt, AdminID: adminID, Redis: rdb}
}

func (m *UserModule) Name() string { return "users" }

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/users")
	auth.Use(
		middleware.AdminAuth(m.JWT, m.AdminID),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.POST("", m.Handler.Create)
		auth.GET("", m.Handler.List)
		auth.GET("/count", m.Handler.Count)
		auth.GET("/:id", m.Handler.Get)
		auth.POST("/:id/notify", m.Notify.Resend)
	}
}
