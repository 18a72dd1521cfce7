package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
)

const KeyLastReport = "upgrade:report:last"

// LastRun is what GET /upgrades/last returns.
type LastRun struct {
	FinishedAt time.Time                  `json:"finished_at"`
	Report     *application.UpgradeReport `json:"report"`
	ArchiveURL string                     `json:"archive_url,omitempty"`
}

// ReportCache keeps the report of the last committed batch in Redis.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl}
}

func (c *ReportCache) Save(ctx context.Context, run LastRun) error {
	const op = "cache.ReportCache.Save"
	if err := helpers.RedisSetJSON(ctx, c.rdb, KeyLastReport, run, c.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Last returns false when nothing is cached (never run, or expired).
func (c *ReportCache) Last(ctx context.Context) (*LastRun, bool, error) {
	const op = "cache.ReportCache.Last"
	var run LastRun
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, KeyLastReport, &run)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &run, true, nil
}

func (c *ReportCache) Clear(ctx context.Context) error {
	return helpers.RedisDel(ctx, c.rdb, KeyLastReport)
}
