// Package notification delivers the "level upgraded" e-mail. QueueDispatcher
// hands a job to RabbitMQ for cmd/email_worker, MailgunDispatcher sends inline
// and LogDispatcher only logs.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/config"
	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	"github.com/oksasatya/go-level-upgrade/pkg/mailer"
	mailtpl "github.com/oksasatya/go-level-upgrade/pkg/mailer/templates"
)

var errNoRecipient = errors.New("empty recipient")

// Publisher is satisfied by *helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Sender is satisfied by *mailer.Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

func upgradeJob(cfg *config.Config, recipient string, u *entity.User, now time.Time) mailer.EmailJob {
	data := mailtpl.NewLevelUpgradedData(cfg, u.Name, recipient, u.Level.String(),
		mailtpl.WithTime(now), mailtpl.WithCounters(u.LoginCount, u.RecommendCount))
	return mailer.EmailJob{To: recipient, Template: mailtpl.LevelUpgraded, Data: data}
}

func checkArgs(op, recipient string, u *entity.User) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("%s: %w: %w", op, application.ErrNotification, errNoRecipient)
	}
	if u == nil {
		return fmt.Errorf("%s: %w: nil user", op, application.ErrNotification)
	}
	return nil
}

type QueueDispatcher struct {
	pub Publisher
	cfg *config.Config
	now func() time.Time
}

func NewQueueDispatcher(pub Publisher, cfg *config.Config) *QueueDispatcher {
	return &QueueDispatcher{pub: pub, cfg: cfg, now: time.Now}
}

func (d *QueueDispatcher) Send(ctx context.Context, recipient string, u *entity.User) error {
	const op = "notification.QueueDispatcher.Send"
	if err := checkArgs(op, recipient, u); err != nil {
		return err
	}
	if err := d.pub.PublishJSON(ctx, upgradeJob(d.cfg, recipient, u, d.now())); err != nil {
		return fmt.Errorf("%s: %w: %w", op, application.ErrNotification, err)
	}
	return nil
}

type MailgunDispatcher struct {
	sender Sender
	cfg    *config.Config
	now    func() time.Time
}

func NewMailgunDispatcher(sender Sender, cfg *config.Config) *MailgunDispatcher {
	return &MailgunDispatcher{sender: sender, cfg: cfg, now: time.Now}
}

func (d *MailgunDispatcher) Send(ctx context.Context, recipient string, u *entity.User) error {
	const op = "notification.MailgunDispatcher.Send"
	if err := checkArgs(op, recipient, u); err != nil {
		return err
	}
	job := upgradeJob(d.cfg, recipient, u, d.now())
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, application.ErrNotification, err)
	}
	if err := d.sender.Send(ctx, recipient, subject, text, html); err != nil {
		return fmt.Errorf("%s: %w: %w", op, application.ErrNotification, err)
	}
	return nil
}

// LogDispatcher is used when MAIL_SEND_ENABLED=false.
type LogDispatcher struct {
	logger *logrus.Logger
}

func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, recipient string, u *entity.User) error {
	const op = "notification.LogDispatcher.Send"
	if err := checkArgs(op, recipient, u); err != nil {
		return err
	}
	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"recipient": recipient,
			"user_id":   u.ID,
			"level":     u.Level.String(),
		}).Info("level upgrade notification (not sent)")
	}
	return nil
}

var (
	_ application.NotificationDispatcher = (*QueueDispatcher)(nil)
	_ application.NotificationDispatcher = (*MailgunDispatcher)(nil)
	_ application.NotificationDispatcher = (*LogDispatcher)(nil)
)
