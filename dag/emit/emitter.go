package emit

import "context"

// Emitter receives observability events from a traversal. Implementations
// must not block traversal execution and must not panic — errors should
// be logged internally rather than propagated.
//
// Pluggable backends: stdout/file logging, OpenTelemetry spans, metrics
// sinks, or a null sink for tests that don't care.
type Emitter interface {
	// Emit sends a single event. Called synchronously from the traversal
	// hot path, so implementations should buffer or go async rather than
	// perform slow I/O inline.
	Emit(event Event)

	// EmitBatch sends multiple events in event order. Returns an error
	// only on catastrophic backend failure; partial per-event failures
	// should be logged and swallowed.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all buffered events have been delivered. Safe
	// to call multiple times.
	Flush(ctx context.Context) error
}
