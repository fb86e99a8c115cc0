// Package resolver finds the real document behind a pairing-row slot.
//
// Slot snapshots are denormalized and may be stale: the id can be missing,
// the kind label can differ from the stored kind and the document may have
// moved since it was dropped. Resolution walks a fixed cascade of listings
// and stops at the first match.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sitedocs/internal/container"
	"sitedocs/internal/store"
)

var ErrNoMatch = errors.New("no document matches slot")

type Lister interface {
	ListDocuments(ctx context.Context, kind, container string, limit int) ([]store.Document, error)
}

type Resolver struct {
	lister Lister
	limit  int
	logger *slog.Logger
}

// New returns a Resolver. limit bounds the ordinary listings; the active
// folder fallback is always unbounded.
func New(lister Lister, limit int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lister: lister, limit: limit, logger: logger}
}

// Resolve returns the document placed in slot of row. activeFolderID is the
// folder currently on screen, or empty.
func (r *Resolver) Resolve(ctx context.Context, row store.PairingRow, slot int, activeFolderID string) (store.Document, error) {
	if !store.ValidSlot(slot) {
		return store.Document{}, store.ErrInvalidSlot
	}
	snap := row.SlotAt(slot)
	if snap.Empty() {
		return store.Document{}, ErrNoMatch
	}

	source := snap.ContainerOfSource
	if slot == store.SlotAfter && source == "" {
		source = row.ID
	}
	kind := snap.Kind
	if kind == "" {
		kind = store.KindDocument
	}

	if snap.DocumentID != "" {
		return fromSnapshot(snap, kind, row, slot, source), nil
	}

	run := &resolution{r: r, ctx: ctx, match: matcherFor(snap), seen: make(map[query]result)}
	kinds := []string{kind}
	if kind != store.KindDocument {
		kinds = append(kinds, store.KindDocument)
	}

	for _, k := range kinds {
		if doc, ok := run.search(k, source, r.limit); ok {
			return doc, nil
		}
	}
	if activeFolderID != "" && source == activeFolderID {
		for _, k := range kinds {
			if doc, ok := run.search(k, source, 0); ok {
				return doc, nil
			}
		}
	}
	if slot == store.SlotBefore && source != row.ID {
		for _, k := range kinds {
			if doc, ok := run.search(k, row.ID, r.limit); ok {
				return doc, nil
			}
		}
	}

	if run.lastErr != nil {
		return store.Document{}, fmt.Errorf("resolve slot %d of row %s: %w", slot, row.ID, run.lastErr)
	}
	r.logger.Debug("slot unresolved", "row_id", row.ID, "slot", slot, "queries", len(run.seen))
	return store.Document{}, ErrNoMatch
}

func fromSnapshot(snap store.Slot, kind string, row store.PairingRow, slot int, source string) store.Document {
	doc := store.Document{
		ID:          snap.DocumentID,
		Kind:        kind,
		Title:       snap.Title,
		Description: snap.Description,
		URL:         snap.URL,
		Container:   source,
	}
	if slot == store.SlotAfter {
		doc.Container = row.ID
	}
	return doc
}

// NormalizeURL strips a single leading slash.
func NormalizeURL(u string) string {
	return strings.TrimPrefix(u, "/")
}

// matcherFor compares by URL whenever the slot has one and by trimmed title
// otherwise. A URL-bearing slot never matches on title.
func matcherFor(snap store.Slot) func(store.Document) bool {
	if url := NormalizeURL(snap.URL); url != "" {
		return func(d store.Document) bool {
			return NormalizeURL(d.URL) == url
		}
	}
	title := strings.TrimSpace(snap.Title)
	if title == "" {
		return func(store.Document) bool { return false }
	}
	return func(d store.Document) bool {
		return strings.TrimSpace(d.Title) == title
	}
}

type query struct {
	kind      string
	container string
	limit     int
}

type result struct {
	docs []store.Document
	err  error
}

// resolution memoizes identical listings within one Resolve call.
type resolution struct {
	r       *Resolver
	ctx     context.Context
	match   func(store.Document) bool
	seen    map[query]result
	lastErr error
}

func (s *resolution) search(kind, c string, limit int) (store.Document, bool) {
	if c == "" {
		return store.Document{}, false
	}
	containers := []string{c}
	if container.IsUnassigned(c) {
		containers = container.Sentinels()
	}
	for _, target := range containers {
		for _, doc := range s.list(query{kind: kind, container: target, limit: limit}) {
			if s.match(doc) {
				return doc, true
			}
		}
	}
	return store.Document{}, false
}

func (s *resolution) list(q query) []store.Document {
	if res, ok := s.seen[q]; ok {
		return res.docs
	}
	docs, err := s.r.lister.ListDocuments(s.ctx, q.kind, q.container, q.limit)
	if err != nil {
		s.lastErr = err
		s.r.logger.Warn("slot lookup listing failed", "kind", q.kind, "container", q.container, "error", err)
	}
	s.seen[q] = result{docs: docs, err: err}
	return docs
}
