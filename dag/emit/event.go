// Package emit provides pluggable observability for traversal execution.
package emit

// Event is one observability event raised during a traversal.
type Event struct {
	// RunID identifies the RunDAG call that emitted this event.
	RunID string

	// Step is the 1-indexed sequential step number. Zero for
	// "traversal_started" and for a "traversal_finished" raised because the
	// worklist drained; a "traversal_finished" raised by a terminating node
	// carries that node's step.
	Step int

	// NodeID identifies the node this event concerns. Empty for
	// "traversal_started" and for a worklist-drained "traversal_finished".
	NodeID string

	// Msg names the event kind: "traversal_started", "step_started",
	// "step_finished", "error_routed", "traversal_finished".
	Msg string

	// Meta carries event-specific structured data, e.g. "duration_ms",
	// "error", "edge", "reason", "steps".
	Meta map[string]any
}
