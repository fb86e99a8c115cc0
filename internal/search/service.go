package search

import (
	"context"
	"log/slog"
)

const (
	EngineMeili    = "meilisearch"
	EnginePostgres = "postgres"
)

// Service tries Meilisearch first and falls back to PostgreSQL.
type Service struct {
	meili  *Meili
	pg     *PgSearch
	logger *slog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pg *PgSearch, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{meili: meili, pg: pg, logger: logger}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Healthy reports whether the primary engine is reachable.
func (s *Service) Healthy() bool {
	return s.meiliReady()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliReady() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: EngineMeili}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", "error", err)
	}

	if s.pg == nil {
		return Response{Results: []Result{}, Query: q.Text, Engine: EnginePostgres}
	}
	results, total, err := s.pg.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search failed", "error", err)
		return Response{Results: []Result{}, Query: q.Text, Engine: EnginePostgres}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: EnginePostgres}
}

// IndexDocument indexes a document (fire-and-forget to Meilisearch).
func (s *Service) IndexDocument(record DocumentRecord) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexDocument(record); err != nil {
			s.logger.Warn("index document failed", "document_id", record.ID, "error", err)
		}
	}()
}

// ReindexAllFromPG pushes every stored document into Meilisearch. It returns
// the number of records sent.
func (s *Service) ReindexAllFromPG(ctx context.Context) int {
	if !s.meiliReady() || s.pg == nil {
		return 0
	}
	records, err := s.pg.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn("reindex load failed", "error", err)
		return 0
	}
	if err := s.meili.IndexDocuments(records); err != nil {
		s.logger.Warn("reindex documents failed", "error", err)
		return 0
	}
	return len(records)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
