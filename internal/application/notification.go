package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
)

var ErrNotification = errors.New("notification failure")

// NotificationDispatcher sends one upgrade notification for one account.
// Implementations wrap transport errors with ErrNotification.
type NotificationDispatcher interface {
	Send(ctx context.Context, recipient string, u *entity.User) error
}

// NotifyFailureMode selects what the batch does when a dispatch fails.
type NotifyFailureMode int

const (
	// NotifyAbort treats a dispatch failure like any other error: the batch aborts and rolls back.
	NotifyAbort NotifyFailureMode = iota
	// NotifyLogAndContinue logs the failure and keeps the level change.
	NotifyLogAndContinue
)

func (m NotifyFailureMode) String() string {
	switch m {
	case NotifyAbort:
		return "abort"
	case NotifyLogAndContinue:
		return "log"
	default:
		return fmt.Sprintf("NotifyFailureMode(%d)", int(m))
	}
}

func ParseNotifyFailureMode(s string) (NotifyFailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return NotifyAbort, nil
	case "log", "continue", "log_and_continue":
		return NotifyLogAndContinue, nil
	default:
		return NotifyAbort, fmt.Errorf("unknown notify failure mode %q", s)
	}
}
