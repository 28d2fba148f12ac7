package audit

import (
	"context"
	"sync"

	"github.com/dshills/intentrouter-go/dag/model"
)

// MemoryStore is an in-memory Store, useful for tests and single-process
// deployments that don't need entries to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]model.AuditEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]model.AuditEntry)}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, runID, nodeID string, entry model.AuditEntry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[runID] = append(s.entries[runID], entry)
	return nil
}

// ListByRun implements Store.
func (s *MemoryStore) ListByRun(ctx context.Context, runID string) ([]model.AuditEntry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.entries[runID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// TotalCost implements Store.
func (s *MemoryStore) TotalCost(ctx context.Context, runID string) (float64, error) {
	entries, err := s.ListByRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range entries {
		total += e.CostUSD
	}
	return total, nil
}

// Close implements Store. MemoryStore holds no resources to release.
func (s *MemoryStore) Close() error { return nil }
