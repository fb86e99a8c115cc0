package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxDocuments = "sitedocs_documents"

// Meili indexes and searches documents in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewMeili creates a client and configures the index when reachable. An
// unreachable server leaves the client unhealthy; a background loop keeps
// probing it.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		logger: logger,
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxDocuments, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxDocuments, "error", err)
	}
	index := m.client.Index(idxDocuments)
	filterable := []interface{}{"container", "kind", "tag", "mediaType"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", idxDocuments, "error", err)
	}
	searchable := []string{"title", "description", "tag"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", idxDocuments, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	req := &meili.SearchRequest{
		IndexUID:              idxDocuments,
		Query:                 q.Text,
		Limit:                 limit,
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"title", "description"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.Container != "" {
		req.Filter = fmt.Sprintf("container = %q", q.Container)
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{req}})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:        decodeString(hit, "id"),
		Title:     firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Snippet:   firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description")),
		Container: decodeString(hit, "container"),
		Kind:      decodeString(hit, "kind"),
		URL:       decodeString(hit, "url"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (m *Meili) IndexDocuments(records []DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxDocuments).AddDocuments(records, nil)
	return err
}

func (m *Meili) IndexDocument(record DocumentRecord) error {
	return m.IndexDocuments([]DocumentRecord{record})
}
