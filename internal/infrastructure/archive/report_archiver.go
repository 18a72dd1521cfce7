package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
)

const DefaultPrefix = "upgrade-reports"

type Uploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// GCSUploader writes objects into one bucket.
type GCSUploader struct {
	Client *storage.Client
	Bucket string
}

func (u GCSUploader) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, u.Client, u.Bucket, objectPath, contentType, r)
}

type archivedReport struct {
	FinishedAt time.Time                  `json:"finished_at"`
	Report     *application.UpgradeReport `json:"report"`
}

// ReportArchiver stores every committed report as one JSON object, keyed by
// finish time: <prefix>/2006/01/02/20060102T150405.000000000Z.json.
type ReportArchiver struct {
	up     Uploader
	prefix string
}

func NewReportArchiver(up Uploader, prefix string) *ReportArchiver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &ReportArchiver{up: up, prefix: prefix}
}

func (a *ReportArchiver) ObjectPath(at time.Time) string {
	at = at.UTC()
	return path.Join(a.prefix, at.Format("2006/01/02"), at.Format("20060102T150405.000000000Z")+".json")
}

// Archive returns the object URL. A nil archiver is a no-op.
func (a *ReportArchiver) Archive(ctx context.Context, report *application.UpgradeReport, at time.Time) (string, error) {
	const op = "archive.ReportArchiver.Archive"
	if a == nil || a.up == nil {
		return "", nil
	}
	b, err := json.MarshalIndent(archivedReport{FinishedAt: at.UTC(), Report: report}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	url, err := a.up.Upload(ctx, a.ObjectPath(at), "application/json", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return url, nil
}
