package router

import (
	"context"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/container"
	repo "github.com/oksasatya/go-level-upgrade/internal/domain/repository"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/cache"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-level-upgrade/internal/interface/http"
	"github.com/oksasatya/go-level-upgrade/internal/router/modules"
)

type moduleDeps struct {
	Store   repo.UserRepository
	Users   *handlers.UserHandler
	Notify  *handlers.NotifyHandler
	Upgrade *handlers.UpgradeHandler
}

func buildDeps() (moduleDeps, error) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	users, _, err := container.Stores()
	if err != nil {
		return moduleDeps{}, err
	}
	userSvc := application.NewUserService(users, logger)

	upgrader, err := container.Upgrader()
	if err != nil {
		return moduleDeps{}, err
	}

	// nil interfaces, not typed nils, so the handler skips missing sinks
	var (
		reports  handlers.ReportStore
		indexer  handlers.ReportIndexer
		archiver handlers.ReportArchiver
	)
	if rdb := container.GetRedis(); rdb != nil {
		reports = cache.NewReportCache(rdb, cfg.UpgradeReportTTL)
	}
	if es := container.GetES(); es != nil {
		indexer = search.NewUserIndexer(es, cfg.ESUpgradesIndex, logger)
	}
	if a := container.Archiver(); a != nil {
		archiver = a
	}

	return moduleDeps{
		Store:   users,
		Users:   handlers.NewUserHandler(userSvc, logger),
		Notify:  handlers.NewNotifyHandler(userSvc, container.Dispatcher(), logger),
		Upgrade: handlers.NewUpgradeHandler(upgrader, reports, indexer, archiver, cfg.UpgradeTimeout, logger),
	}, nil
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) error {
	deps, err := buildDeps()
	if err != nil {
		return err
	}
	cfg := container.GetConfig()
	jwt := container.GetJWT()
	rdb := container.GetRedis()

	r.Add(modules.NewUserModule(deps.Users, deps.Notify, jwt, cfg.AdminUserID, rdb))
	r.Add(modules.NewUpgradeModule(deps.Upgrade, jwt, cfg.AdminUserID, rdb, cfg.UpgradeRateLimit))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}

	r.Probe("store", func(ctx context.Context) error {
		_, err := deps.Store.Count(ctx)
		return err
	})
	if rdb != nil {
		r.Probe("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	return nil
}
