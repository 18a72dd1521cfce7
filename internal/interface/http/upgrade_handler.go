package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/internal/domain/entity"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/cache"
	"github.com/oksasatya/go-level-upgrade/internal/infrastructure/search"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
	"github.com/oksasatya/go-level-upgrade/pkg/response"
)

type ReportStore interface {
	Save(ctx context.Context, run cache.LastRun) error
	Last(ctx context.Context) (*cache.LastRun, bool, error)
}

type ReportIndexer interface {
	IndexReport(ctx context.Context, report *application.UpgradeReport, at time.Time) (int, error)
	SearchByLevel(ctx context.Context, level string, size int) ([]search.UpgradeDoc, error)
}

type ReportArchiver interface {
	Archive(ctx context.Context, report *application.UpgradeReport, at time.Time) (string, error)
}

// UpgradeHandler runs the batch and publishes its report. Reports, indexing and
// archiving are optional; a nil field skips that step.
type UpgradeHandler struct {
	Upgrader application.LevelUpgrader
	Reports  ReportStore
	Indexer  ReportIndexer
	Archiver ReportArchiver
	Timeout  time.Duration
	Logger   *logrus.Logger

	now func() time.Time
}

func NewUpgradeHandler(up application.LevelUpgrader, reports ReportStore, indexer ReportIndexer, archiver ReportArchiver, timeout time.Duration, logger *logrus.Logger) *UpgradeHandler {
	return &UpgradeHandler{
		Upgrader: up,
		Reports:  reports,
		Indexer:  indexer,
		Archiver: archiver,
		Timeout:  timeout,
		Logger:   logger,
		now:      time.Now,
	}
}

func (h *UpgradeHandler) Run(c *gin.Context) {
	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	upgradeBatchesTotal.Add(1)
	report, err := h.Upgrader.UpgradeAll(ctx)
	if err != nil {
		upgradeBatchesFailed.Add(1)
		h.logWarn(err, "upgrade batch failed")
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		response.Error[any](c, status, "upgrade failed, no account was changed", err.Error())
		return
	}
	upgradeUsersTotal.Add(int64(report.Count()))

	// The batch is committed; everything below is best-effort and must not
	// inherit the batch deadline.
	post := context.WithoutCancel(c.Request.Context())
	finished := h.now()
	run := cache.LastRun{FinishedAt: finished.UTC(), Report: report}

	if h.Archiver != nil {
		url, err := h.Archiver.Archive(post, report, finished)
		if err != nil {
			h.logWarn(err, "archive report failed")
		}
		run.ArchiveURL = url
	}
	if h.Reports != nil {
		if err := h.Reports.Save(post, run); err != nil {
			h.logWarn(err, "cache report failed")
		}
	}
	if h.Indexer != nil {
		if _, err := h.Indexer.IndexReport(post, report, finished); err != nil {
			h.logWarn(err, "index report failed")
		}
	}

	response.Success(c, http.StatusOK, run, "upgrade completed", map[string]any{"upgraded": report.Count()})
}

func (h *UpgradeHandler) Last(c *gin.Context) {
	if h.Reports == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "report cache not configured", nil)
		return
	}
	run, ok, err := h.Reports.Last(c.Request.Context())
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load last report", nil)
		return
	}
	if !ok {
		response.Error[any](c, http.StatusNotFound, "no upgrade report", nil)
		return
	}
	response.Success(c, http.StatusOK, run, "last upgrade report", nil)
}

// Search lists indexed upgrades by current level: GET /upgrades/search?level=GOLD&size=10
func (h *UpgradeHandler) Search(c *gin.Context) {
	level, err := entity.ParseLevel(c.Query("level"))
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid level", map[string]string{"level": "must be one of: BASIC, SILVER, GOLD"})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	if h.Indexer == nil {
		response.Success(c, http.StatusOK, []search.UpgradeDoc{}, "search disabled", nil)
		return
	}
	docs, err := h.Indexer.SearchByLevel(c.Request.Context(), level.String(), size)
	if err != nil {
		h.logWarn(err, "search upgrades failed")
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, docs, "upgrades", map[string]any{"count": len(docs)})
}

func (h *UpgradeHandler) logWarn(err error, msg string) {
	helpers.LogWarn(h.Logger, msg, err, nil)
}
