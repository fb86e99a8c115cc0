// Package doccache loads and holds the document lists shown for the
// unassigned pool, a folder, a document's associated items and a folder's
// pairing rows. Lists only ever reflect what the store returned.
package doccache

import (
	"context"
	"fmt"

	"sitedocs/internal/container"
	"sitedocs/internal/store"
)

const CodeLoadError = "LOAD_ERROR"

type ScopeKind int

const (
	ScopePool ScopeKind = iota
	ScopeFolder
	ScopeAssociated
)

func (k ScopeKind) String() string {
	switch k {
	case ScopePool:
		return "pool"
	case ScopeFolder:
		return "folder"
	case ScopeAssociated:
		return "associated"
	default:
		return fmt.Sprintf("scope(%d)", int(k))
	}
}

// Scope selects one document list. ID is ignored for the pool.
type Scope struct {
	Kind    ScopeKind
	ID      string
	DocKind string
	Limit   int
}

func Pool(docKind string, limit int) Scope {
	return Scope{Kind: ScopePool, DocKind: docKind, Limit: limit}
}

func Folder(id, docKind string, limit int) Scope {
	return Scope{Kind: ScopeFolder, ID: id, DocKind: docKind, Limit: limit}
}

func Associated(id, docKind string, limit int) Scope {
	return Scope{Kind: ScopeAssociated, ID: id, DocKind: docKind, Limit: limit}
}

// Key identifies the scope in the registry and in error reports.
func (s Scope) Key() string {
	if s.Kind == ScopePool {
		return "pool:" + s.DocKind
	}
	return s.Kind.String() + ":" + s.ID + ":" + s.DocKind
}

func (s Scope) containers() []string {
	if s.Kind == ScopePool {
		return container.Sentinels()
	}
	return []string{s.ID}
}

// LoadError reports a failed list fetch for one scope.
type LoadError struct {
	Scope string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeLoadError, e.Scope, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Lister interface {
	ListDocuments(ctx context.Context, kind, container string, limit int) ([]store.Document, error)
}

// Fetch lists the documents of scope. The pool is read under both
// sentinels and merged; duplicates keep their first position and their
// last value.
func Fetch(ctx context.Context, lister Lister, scope Scope) ([]store.Document, error) {
	lists := make([][]store.Document, 0, 2)
	for _, c := range scope.containers() {
		items, err := lister.ListDocuments(ctx, scope.DocKind, c, scope.Limit)
		if err != nil {
			return nil, &LoadError{Scope: scope.Key(), Err: err}
		}
		lists = append(lists, items)
	}
	return container.MergeByID(lists...), nil
}
