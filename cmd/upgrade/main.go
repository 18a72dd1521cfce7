// Command upgrade runs one level-upgrade batch and exits. It is meant for cron:
// exit status 1 means the batch failed and no account was changed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/config"
	"github.com/oksasatya/go-level-upgrade/internal/container"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/cache"
	pginfra "github.com/oksasatya/go-level-upgrade/internal/infrastructure/postgres"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/search"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
	"github.com/oksasatya/go-level-upgrade/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-upgrade", cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("upgrade batch failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)

	switch cfg.EffectiveNotifyTransport() {
	case "queue":
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer pub.Close()
		container.SetRabbitPub(pub)
	case "mailgun":
		container.SetMailgun(mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender))
	}

	if cfg.GCSReportsBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return fmt.Errorf("gcs: %w", err)
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetGCS(gcsClient)
	}

	upgrader, err := container.Upgrader()
	if err != nil {
		return err
	}

	batchCtx := ctx
	if cfg.UpgradeTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, cfg.UpgradeTimeout)
		defer cancel()
	}
	report, err := upgrader.UpgradeAll(batchCtx)
	if err != nil {
		return err
	}
	finished := time.Now().UTC()
	last := cache.LastRun{FinishedAt: finished, Report: report}

	// Committed; the rest is best-effort.
	post := context.WithoutCancel(ctx)
	if a := container.Archiver(); a != nil {
		if last.ArchiveURL, err = a.Archive(post, report, finished); err != nil {
			helpers.LogWarn(logger, "archive report failed", err, logrus.Fields{"bucket": cfg.GCSReportsBucket})
		}
	}
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := cache.NewReportCache(rdb, cfg.UpgradeReportTTL).Save(post, last); err != nil {
		helpers.LogWarn(logger, "cache report failed", err, nil)
	}
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		if es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass); err == nil {
			idx := search.NewUserIndexer(es, cfg.ESUpgradesIndex, logger)
			if err := idx.EnsureIndex(post); err != nil {
				helpers.LogWarn(logger, "es index setup failed", err, nil)
			}
			if _, err := idx.IndexReport(post, report, finished); err != nil {
				helpers.LogWarn(logger, "index report failed", err, nil)
			}
		}
	}

	out, _ := json.MarshalIndent(last, "", "  ")
	fmt.Println(string(out))
	return nil
}
