// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/readerspec/adapters/idgen"
	"github.com/artpar/readerspec/ports"
)

// HistoryStore is an in-memory implementation of ports.HistoryStore.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []ports.HistoryEntry // in record order
	ids     ports.IDGenerator
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{ids: idgen.NewSequential("run-")}
}

// Record stores a translation run. Missing IDs and timestamps are filled in.
func (s *HistoryStore) Record(ctx context.Context, e ports.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.ids.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, e)
	return nil
}

// LastSuccess returns the most recently recorded successful run for path.
func (s *HistoryStore) LastSuccess(ctx context.Context, path string) (ports.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Path == path && s.entries[i].Success {
			return s.entries[i], nil
		}
	}
	return ports.HistoryEntry{}, ports.ErrNotFound
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]ports.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ports.HistoryEntry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Entries returns every run in record order.
func (s *HistoryStore) Entries() []ports.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.HistoryEntry(nil), s.entries...)
}

// Len returns the number of recorded runs.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ ports.HistoryStore = (*HistoryStore)(nil)
