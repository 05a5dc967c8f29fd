// Package search mirrors audit entries into Elasticsearch and serves the
// admin audit search. The index is a convenience view; the audit_log table
// stays the source of truth.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/rentora/authcore/internal/config"
	"github.com/rentora/authcore/internal/logging"
	"github.com/rentora/authcore/internal/models"
)

const auditIndex = "audit_log"

// AuditIndexer is nil-safe like the event producer; without ES_URL the
// service runs with indexing disabled.
type AuditIndexer struct {
	es *elasticsearch.Client
}

func NewAuditIndexer(cfg *config.Config) (*AuditIndexer, error) {
	if cfg.ESURL == "" {
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ESURL},
		Username:  cfg.ESUser,
		Password:  cfg.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return &AuditIndexer{es: client}, nil
}

// Index is best-effort; a failed write is logged and the request proceeds.
func (a *AuditIndexer) Index(ctx context.Context, entry *models.AuditEntry) {
	if a == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logging.FromContext(ctx).Error("audit index marshal failed", "error", err)
		return
	}
	res, err := a.es.Index(
		auditIndex,
		bytes.NewReader(data),
		a.es.Index.WithContext(ctx),
		a.es.Index.WithDocumentID(strconv.FormatUint(uint64(entry.ID), 10)),
	)
	if err != nil {
		logging.FromContext(ctx).Error("audit index failed", "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		logging.FromContext(ctx).Error("audit index rejected", "status", res.Status())
	}
}

func (a *AuditIndexer) Enabled() bool { return a != nil }

// Search runs a fuzzy match over audit detail and table name.
func (a *AuditIndexer) Search(ctx context.Context, query string, from, size int) (int64, []models.AuditEntry, error) {
	if a == nil {
		return 0, nil, fmt.Errorf("audit search disabled")
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"detail^2", "table", "action"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := a.es.Search(
		a.es.Search.WithContext(ctx),
		a.es.Search.WithIndex(auditIndex),
		a.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("audit search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.AuditEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	entries := make([]models.AuditEntry, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		entries[i] = hit.Source
	}
	return r.Hits.Total.Value, entries, nil
}
