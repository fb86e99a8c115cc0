package doccache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"sitedocs/internal/store"
)

type Source interface {
	Lister
	ListPairingRows(ctx context.Context, folderID string) ([]store.PairingRow, error)
}

// Registry owns one cache per scope. Caches load independently so a failing
// scope never blocks another.
type Registry struct {
	src     Source
	docKind string
	limit   int
	logger  *slog.Logger

	mu   sync.Mutex
	docs map[string]*Cache[store.Document]
	rows map[string]*Cache[store.PairingRow]
}

func NewRegistry(src Source, docKind string, limit int, logger *slog.Logger) *Registry {
	if docKind == "" {
		docKind = store.KindDocument
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		src:     src,
		docKind: docKind,
		limit:   limit,
		logger:  logger,
		docs:    make(map[string]*Cache[store.Document]),
		rows:    make(map[string]*Cache[store.PairingRow]),
	}
}

func (r *Registry) Documents(scope Scope) *Cache[store.Document] {
	if scope.DocKind == "" {
		scope.DocKind = r.docKind
	}
	key := scope.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.docs[key]; ok {
		return c
	}
	c := NewCache(key, func(ctx context.Context) ([]store.Document, error) {
		return Fetch(ctx, r.src, scope)
	}, r.logger)
	r.docs[key] = c
	return c
}

func (r *Registry) Pool() *Cache[store.Document] {
	return r.Documents(Pool(r.docKind, r.limit))
}

func (r *Registry) Folder(id string) *Cache[store.Document] {
	return r.Documents(Folder(id, r.docKind, r.limit))
}

func (r *Registry) Associated(id string) *Cache[store.Document] {
	return r.Documents(Associated(id, r.docKind, r.limit))
}

// Rows returns the pairing-row cache of a folder.
func (r *Registry) Rows(folderID string) *Cache[store.PairingRow] {
	key := "rows:" + folderID

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.rows[key]; ok {
		return c
	}
	c := NewCache(key, func(ctx context.Context) ([]store.PairingRow, error) {
		rows, err := r.src.ListPairingRows(ctx, folderID)
		if err != nil {
			return nil, &LoadError{Scope: key, Err: err}
		}
		return rows, nil
	}, r.logger)
	r.rows[key] = c
	return c
}

func (r *Registry) RefreshPool(ctx context.Context) error {
	return r.Pool().Refresh(ctx)
}

func (r *Registry) RefreshFolder(ctx context.Context, folderID string) error {
	return r.Folder(folderID).Refresh(ctx)
}

func (r *Registry) RefreshRows(ctx context.Context, folderID string) error {
	return r.Rows(folderID).Refresh(ctx)
}

// Errors returns the load errors currently recorded, keyed by scope.
func (r *Registry) Errors() map[string]string {
	r.mu.Lock()
	docs := make([]*Cache[store.Document], 0, len(r.docs))
	for _, c := range r.docs {
		docs = append(docs, c)
	}
	rows := make([]*Cache[store.PairingRow], 0, len(r.rows))
	for _, c := range r.rows {
		rows = append(rows, c)
	}
	r.mu.Unlock()

	out := make(map[string]string)
	for _, c := range docs {
		if _, _, err := c.Snapshot(); err != nil {
			out[c.Key()] = err.Error()
		}
	}
	for _, c := range rows {
		if _, _, err := c.Snapshot(); err != nil {
			out[c.Key()] = err.Error()
		}
	}
	return out
}

// Dismiss clears the load error of the scope with the given key.
func (r *Registry) Dismiss(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.docs[key]; ok {
		c.DismissError()
		return nil
	}
	if c, ok := r.rows[key]; ok {
		c.DismissError()
		return nil
	}
	return fmt.Errorf("unknown scope %q", key)
}

// Keys lists the registered scope keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.docs)+len(r.rows))
	for k := range r.docs {
		keys = append(keys, k)
	}
	for k := range r.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
