package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
	"github.com/oksasatya/go-level-upgrade/pkg/response"
	"github.com/oksasatya/go-level-upgrade/pkg/validation"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	ID             string `json:"id" binding:"omitempty,max=64"`
	Name           string `json:"name" binding:"max=100"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,pwd"`
	Level          string `json:"level" binding:"level"`
	LoginCount     int    `json:"login_count" binding:"counter"`
	RecommendCount int    `json:"recommend_count" binding:"counter"`
}

type userView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Level          entity.Level `json:"level"`
	LoginCount     int          `json:"login_count"`
	RecommendCount int          `json:"recommend_count"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func toView(u *entity.User) userView {
	return userView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Level:          u.Level,
		LoginCount:     u.LoginCount,
		RecommendCount: u.RecommendCount,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	var level entity.Level
	if strings.TrimSpace(req.Level) != "" {
		l, err := entity.ParseLevel(req.Level)
		if err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"level": err.Error()})
			return
		}
		level = l
	}

	hash, err := helpers.HashPassword(req.Password)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to hash password", nil)
		return
	}

	u := &entity.User{
		ID:             req.ID,
		Name:           req.Name,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Password:       hash,
		Level:          level,
		LoginCount:     req.LoginCount,
		RecommendCount: req.RecommendCount,
	}
	if err := h.Svc.Add(c.Request.Context(), u); err != nil {
		if errors.Is(err, application.ErrInvalidUser) {
			response.Error[any](c, http.StatusBadRequest, "invalid user", err.Error())
			return
		}
		helpers.LogError(h.Logger, "create user failed", err, logrus.Fields{"email": u.Email})
		response.Error[any](c, http.StatusInternalServerError, "failed to create user", nil)
		return
	}
	response.Success(c, http.StatusCreated, toView(u), "user created", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context())
	if err != nil {
		helpers.LogError(h.Logger, "list users failed", err, nil)
		response.Error[any](c, http.StatusInternalServerError, "failed to list users", nil)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toView(u))
	}
	response.Success(c, http.StatusOK, out, "users", map[string]any{"count": len(out)})
}

func (h *UserHandler) Count(c *gin.Context) {
	n, err := h.Svc.Count(c.Request.Context())
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to count users", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"count": n}, "user count", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, application.ErrUserNotFound) {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load user", nil)
		return
	}
	response.Success(c, http.StatusOK, toView(u), "user", nil)
}
