package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/internal/application"
	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
)

const requestTimeout = 3 * time.Second

// UpgradeDoc is one indexed upgrade. The document id is the user id, so the
// index holds the latest upgrade of each user.
type UpgradeDoc struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	From       string    `json:"from"`
	Level      string    `json:"level"`
	UpgradedAt time.Time `json:"upgraded_at"`
}

type UserIndexer struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewUserIndexer(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserIndexer {
	return &UserIndexer{es: es, index: index, logger: logger}
}

// upgradesMapping keeps level as text with a keyword subfield, the same shape
// dynamic mapping would produce, so SearchByLevel works either way.
const upgradesMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "email":       {"type": "keyword"},
      "from":        {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "level":       {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "upgraded_at": {"type": "date"}
    }
  }
}`

// EnsureIndex creates the upgrades index on first use.
func (x *UserIndexer) EnsureIndex(ctx context.Context) error {
	if !x.enabled() {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	created, err := helpers.ESEnsureIndex(c, x.es, x.index, upgradesMapping)
	if err != nil {
		return fmt.Errorf("search.UserIndexer.EnsureIndex: %w", err)
	}
	if created {
		helpers.LogInfo(x.logger, "es index created", logrus.Fields{"index": x.index})
	}
	return nil
}

func (x *UserIndexer) enabled() bool { return x != nil && x.es != nil && x.index != "" }

// IndexReport indexes every upgraded user of the report. It keeps going after a
// failed document and returns how many were indexed plus the first error.
func (x *UserIndexer) IndexReport(ctx context.Context, report *application.UpgradeReport, at time.Time) (int, error) {
	const op = "search.UserIndexer.IndexReport"
	if !x.enabled() || report == nil {
		return 0, nil
	}
	var (
		indexed  int
		firstErr error
	)
	for _, u := range report.Upgraded {
		doc := UpgradeDoc{ID: u.ID, Email: u.Email, From: u.From.String(), Level: u.To.String(), UpgradedAt: at.UTC()}
		if err := x.indexOne(ctx, doc); err != nil {
			helpers.LogWarn(x.logger, "es index failed", err, logrus.Fields{"user_id": u.ID})
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: user %s: %w", op, u.ID, err)
			}
			continue
		}
		indexed++
	}
	return indexed, firstErr
}

func (x *UserIndexer) indexOne(ctx context.Context, doc UpgradeDoc) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: doc.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index response: %s", res.Status())
	}
	return nil
}

// SearchByLevel returns the indexed upgrades whose current level matches.
func (x *UserIndexer) SearchByLevel(ctx context.Context, level string, size int) ([]UpgradeDoc, error) {
	const op = "search.UserIndexer.SearchByLevel"
	if !x.enabled() {
		return []UpgradeDoc{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"level.keyword": strings.ToUpper(level)},
		},
		"size": size,
		"sort": []any{map[string]any{"upgraded_at": "desc"}},
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("%s: %s", op, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source UpgradeDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]UpgradeDoc, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
