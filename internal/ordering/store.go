// Package ordering persists the custom document order of each folder.
//
// The shared remote store is authoritative when it has a value. A device
// local store keeps the last order that could not reach the remote. Saving
// never fails outward: the committed in-memory order always moves forward.
package ordering

import (
	"context"
	"log/slog"
	"sync"
)

type Remote interface {
	GetFolderOrder(ctx context.Context, folderID string) ([]string, error)
	SetFolderOrder(ctx context.Context, folderID string, ids []string) (bool, error)
}

type Local interface {
	GetFolderOrder(folderID string) ([]string, error)
	SetFolderOrder(folderID string, ids []string) error
}

// Persisted tells where a saved order ended up.
type Persisted int

const (
	PersistedMemory Persisted = iota
	PersistedLocal
	PersistedRemote
)

func (p Persisted) String() string {
	switch p {
	case PersistedRemote:
		return "remote"
	case PersistedLocal:
		return "local"
	default:
		return "memory"
	}
}

type Store struct {
	remote Remote
	local  Local
	logger *slog.Logger

	mu      sync.RWMutex
	current map[string][]string
}

// New builds a Store. Either backend may be nil.
func New(remote Remote, local Local, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote:  remote,
		local:   local,
		logger:  logger,
		current: make(map[string][]string),
	}
}

// Load returns the remote order when it is non-empty, otherwise the local
// one, otherwise the last committed order. A remote error is treated like
// an absent value. The remote is asked on every call.
func (s *Store) Load(ctx context.Context, folderID string) []string {
	if s.remote != nil {
		ids, err := s.remote.GetFolderOrder(ctx, folderID)
		switch {
		case err != nil:
			s.logger.Warn("remote folder order unavailable", "folder_id", folderID, "error", err)
		case len(ids) > 0:
			s.commit(folderID, ids)
			return s.copyOf(folderID)
		}
	}
	if s.local != nil {
		ids, err := s.local.GetFolderOrder(folderID)
		if err != nil {
			s.logger.Warn("local folder order unreadable", "folder_id", folderID, "error", err)
		} else if len(ids) > 0 {
			s.commit(folderID, ids)
			return s.copyOf(folderID)
		}
	}
	ids, _ := s.Current(folderID)
	return ids
}

// Save writes ids remotely and falls back to the local store when the
// remote write errors or is not acknowledged. ids become the current order
// in every case.
func (s *Store) Save(ctx context.Context, folderID string, ids []string) Persisted {
	ids = dedupe(ids)
	persisted := PersistedMemory

	if s.remote != nil {
		ok, err := s.remote.SetFolderOrder(ctx, folderID, ids)
		switch {
		case err != nil:
			s.logger.Warn("remote folder order save failed", "folder_id", folderID, "error", err)
		case !ok:
			s.logger.Warn("remote folder order save not acknowledged", "folder_id", folderID)
		default:
			persisted = PersistedRemote
		}
	}
	if persisted != PersistedRemote && s.local != nil {
		if err := s.local.SetFolderOrder(folderID, ids); err != nil {
			s.logger.Warn("local folder order save failed", "folder_id", folderID, "error", err)
		} else {
			persisted = PersistedLocal
		}
	}

	s.commit(folderID, ids)
	s.logger.Debug("folder order saved", "folder_id", folderID, "persisted", persisted.String(), "count", len(ids))
	return persisted
}

// Current returns the last committed order of the folder.
func (s *Store) Current(folderID string) ([]string, bool) {
	s.mu.RLock()
	_, ok := s.current[folderID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.copyOf(folderID), true
}

func (s *Store) commit(folderID string, ids []string) {
	next := make([]string, len(ids))
	copy(next, ids)
	s.mu.Lock()
	s.current[folderID] = next
	s.mu.Unlock()
}

func (s *Store) copyOf(folderID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.current[folderID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
