package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
	"github.com/oksasatya/go-level-upgrade/pkg/response"
)

// NotifyHandler re-sends the level notification of one user, e.g. after a
// batch that ran in log-and-continue mode could not deliver it.
type NotifyHandler struct {
	Users      *application.UserService
	Dispatcher application.NotificationDispatcher
	Logger     *logrus.Logger
}

func NewNotifyHandler(users *application.UserService, d application.NotificationDispatcher, logger *logrus.Logger) *NotifyHandler {
	return &NotifyHandler{Users: users, Dispatcher: d, Logger: logger}
}

func (h *NotifyHandler) Resend(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := h.Users.Get(ctx, c.Param("id"))
	if errors.Is(err, application.ErrUserNotFound) {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load user", nil)
		return
	}

	if err := h.Dispatcher.Send(ctx, u.Email, u); err != nil {
		helpers.LogWarn(h.Logger, "resend notification failed", err, logrus.Fields{"user_id": u.ID})
		response.Error[any](c, http.StatusBadGateway, "failed to send notification", nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, gin.H{"user_id": u.ID, "level": u.Level}, "notification sent", nil)
}
