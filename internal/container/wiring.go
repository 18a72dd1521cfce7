package container

import (
	"errors"

	"github.com/oksasatya/go-level-upgrade/config"
	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/domain/repository"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/archive"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/notification"
	pginfra "github.com/oksasatya/go-level-upgrade/internal/infrastructure/postgres"
)

var ErrNoStore = errors.New("container: no user store configured")

// Stores returns the committed-state repository and the transactor of the
// configured backend. The memory store wins when both are set.
func Stores() (repository.UserRepository, repository.Transactor, error) {
	if memStore != nil {
		return memStore.Users(), memStore, nil
	}
	if pgPool != nil {
		return pginfra.NewUserRepository(pgPool), pginfra.NewTxManager(pgPool), nil
	}
	return nil, nil, ErrNoStore
}

// Dispatcher picks the notification transport from config. A transport whose
// client was not constructed degrades to logging.
func Dispatcher() application.NotificationDispatcher {
	transport := "log"
	if cfg != nil {
		transport = cfg.EffectiveNotifyTransport()
	}
	switch transport {
	case "queue":
		if rabbitPub != nil {
			return notification.NewQueueDispatcher(rabbitPub, cfg)
		}
	case "mailgun":
		if mailgunClient != nil {
			return notification.NewMailgunDispatcher(mailgunClient, cfg)
		}
	case "log":
		return notification.NewLogDispatcher(logger)
	}
	if logger != nil {
		logger.WithField("transport", transport).Warn("notification transport unavailable, logging only")
	}
	return notification.NewLogDispatcher(logger)
}

// PolicyConfig maps the configured thresholds onto the policy. Non-positive
// values keep the defaults.
func PolicyConfig(c *config.Config) application.PolicyConfig {
	p := application.DefaultPolicyConfig()
	if c.LevelMinLoginForSilver > 0 {
		p.MinLoginCountForSilver = c.LevelMinLoginForSilver
	}
	if c.LevelMinRecommendForGold > 0 {
		p.MinRecommendCountForGold = c.LevelMinRecommendForGold
	}
	return p
}

// Upgrader builds the transactional upgrade batch over the configured store.
func Upgrader() (*application.TxUpgradeService, error) {
	_, tx, err := Stores()
	if err != nil {
		return nil, err
	}
	policyCfg := application.DefaultPolicyConfig()
	mode := application.NotifyAbort
	if cfg != nil {
		policyCfg = PolicyConfig(cfg)
		if mode, err = application.ParseNotifyFailureMode(cfg.NotifyFailureMode); err != nil {
			return nil, err
		}
	}
	policy := application.NewLevelPolicy(policyCfg)
	dispatcher := Dispatcher()

	return application.NewTxUpgradeService(tx, func(users repository.UserRepository) application.LevelUpgrader {
		return application.NewUpgradeService(users, policy, dispatcher, mode, logger)
	}, logger), nil
}

// Archiver is nil when no GCS client or reports bucket is configured.
func Archiver() *archive.ReportArchiver {
	if gcsClient == nil || cfg == nil || cfg.GCSReportsBucket == "" {
		return nil
	}
	return archive.NewReportArchiver(archive.GCSUploader{Client: gcsClient, Bucket: cfg.GCSReportsBucket}, cfg.GCSReportsPrefix)
}
