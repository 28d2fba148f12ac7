// Package audit provides durable persistence for LLM call records
// (model.AuditEntry) beyond the in-process AuditLog every provider
// adapter keeps. A Store lets a deployment retain call history for
// compliance review or cost reconciliation across restarts.
package audit

import (
	"context"
	"errors"

	"github.com/dshills/intentrouter-go/dag/model"
)

// ErrNotFound is returned when a requested run has no recorded entries.
var ErrNotFound = errors.New("audit: not found")

// Store persists model.AuditEntry records keyed by run ID, and lets a
// caller page back through them later.
type Store interface {
	// Append records entry under runID. nodeID identifies which graph
	// node triggered the call, for later filtering.
	Append(ctx context.Context, runID, nodeID string, entry model.AuditEntry) error

	// ListByRun returns every entry recorded for runID, oldest first.
	// Returns ErrNotFound if runID has no entries.
	ListByRun(ctx context.Context, runID string) ([]model.AuditEntry, error)

	// TotalCost sums CostUSD across every entry recorded for runID.
	TotalCost(ctx context.Context, runID string) (float64, error)

	// Close releases any resources the store holds open.
	Close() error
}
