package search

import (
	"context"
	"fmt"
	"strings"

	"sitedocs/internal/store"
)

type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, text string, limit int) ([]store.Document, error)
	ListAllDocuments(ctx context.Context) ([]store.Document, error)
}

// PgSearch answers queries straight from PostgreSQL when Meilisearch is not
// available.
type PgSearch struct {
	docs DocumentSearcher
}

func NewPgSearch(docs DocumentSearcher) *PgSearch {
	return &PgSearch{docs: docs}
}

func (p *PgSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	docs, err := p.docs.SearchDocuments(ctx, q.Text, limit+offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}

	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		if q.Container != "" && doc.Container != q.Container {
			continue
		}
		results = append(results, Result{
			ID:        doc.ID,
			Title:     doc.Title,
			Snippet:   doc.Description,
			Container: doc.Container,
			Kind:      doc.Kind,
			URL:       doc.URL,
		})
	}
	total := len(results)
	if offset >= len(results) {
		return []Result{}, total, nil
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

// LoadAllRecords returns every document for a full reindex.
func (p *PgSearch) LoadAllRecords(ctx context.Context) ([]DocumentRecord, error) {
	docs, err := p.docs.ListAllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	records := make([]DocumentRecord, len(docs))
	for i, doc := range docs {
		records[i] = RecordOf(doc)
	}
	return records, nil
}
