package doccache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Cache holds the last successful result of one loader.
//
// A failed first load leaves an empty list. A failed refresh keeps the
// previous list. Both record a *LoadError until dismissed or until the next
// successful load.
type Cache[T any] struct {
	key    string
	load   func(context.Context) ([]T, error)
	logger *slog.Logger

	mu     sync.RWMutex
	items  []T
	loaded bool
	err    *LoadError

	// started numbers each load; applied is the newest load committed.
	started uint64
	applied uint64
}

func NewCache[T any](key string, load func(context.Context) ([]T, error), logger *slog.Logger) *Cache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[T]{key: key, load: load, logger: logger, items: []T{}}
}

func (c *Cache[T]) Key() string { return c.key }

// Refresh reloads the list. It returns the *LoadError recorded on failure.
// A load that finishes after a newer one has been committed is discarded.
func (c *Cache[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.started++
	gen := c.started
	c.mu.Unlock()

	items, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.applied {
		c.logger.Debug("discarding superseded load", "scope", c.key)
		if err != nil {
			return &LoadError{Scope: c.key, Err: err}
		}
		return nil
	}
	c.applied = gen
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Scope: c.key, Err: err}
		}
		c.err = loadErr
		c.logger.Warn("list load failed", "scope", c.key, "initial", !c.loaded, "error", err)
		return loadErr
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.loaded = true
	c.err = nil
	return nil
}

// Snapshot returns a copy of the current list, whether it has loaded at
// least once, and the recorded load error.
func (c *Cache[T]) Snapshot() ([]T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	if c.err == nil {
		return out, c.loaded, nil
	}
	return out, c.loaded, c.err
}

// Get returns the cached list, loading it first if it never loaded.
func (c *Cache[T]) Get(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if !loaded {
		_ = c.Refresh(ctx)
	}
	items, _, err := c.Snapshot()
	return items, err
}

func (c *Cache[T]) DismissError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}
