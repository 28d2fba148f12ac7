package dag

import (
	"errors"
	"fmt"
)

// ErrFrozenGraph is recorded by a Builder mutation method called after
// Build has succeeded, and returned by the next Build call.
var ErrFrozenGraph = errors.New("dag: graph is frozen")

// ErrNoEntrypoints is returned by RunDAG when the graph has none.
var ErrNoEntrypoints = errors.New("dag: no entrypoints")

// ErrInvalidRetryPolicy mirrors the teacher engine's retry validation.
var ErrInvalidRetryPolicy = errors.New("dag: invalid retry policy")

var errNoResolver = errors.New("dag: no resolver configured")
var errUnknownNode = errors.New("dag: worklist references unknown node")

// CycleError is raised at build time when the validator's three-color DFS
// finds a back-edge. Cycle is the ordered node-id path of the offending
// cycle, starting and ending on the same id.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dag: cycle detected: %v", e.Cycle)
}

// ClassificationError is raised by a classifier node when its
// classification_func or its LLM call fails. A classifier with no
// usable LLM client/config does not raise it; it returns a terminating
// result carrying the error text in its patch. An unrecognized label is
// not an error either — that case routes to "clarification" per the
// classifier contract.
type ClassificationError struct {
	NodeID string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("dag: classification error at node %q: %s", e.NodeID, e.Reason)
}

// ExtractionError is raised by an extractor node when the LLM reply
// cannot be parsed as JSON/YAML under any fallback, or when a field
// fails type coercion against its declared schema type.
type ExtractionError struct {
	NodeID string
	Field  string
	Reason string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("dag: extraction error at node %q, field %q: %s", e.NodeID, e.Field, e.Reason)
	}
	return fmt.Sprintf("dag: extraction error at node %q: %s", e.NodeID, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// TypeCoercionError is raised when a parameter value cannot be coerced
// to its declared schema type (§9 coercion rules).
type TypeCoercionError struct {
	Field  string
	Want   string
	Got    any
	Reason string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("dag: cannot coerce field %q (value %v) to %s: %s", e.Field, e.Got, e.Want, e.Reason)
}

// ActionExecutionError is raised when a host-supplied action callable
// returns an error.
type ActionExecutionError struct {
	NodeID string
	Cause  error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("dag: action %q failed: %v", e.NodeID, e.Cause)
}

func (e *ActionExecutionError) Unwrap() error { return e.Cause }

// TraversalError covers resolver failures and re-raised node errors that
// had no attached error edge.
type TraversalError struct {
	NodeID string
	Step   int
	Cause  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("dag: traversal error at node %q (step %d): %v", e.NodeID, e.Step, e.Cause)
}

func (e *TraversalError) Unwrap() error { return e.Cause }

// TraversalLimitError is raised when MaxSteps or MaxFanoutPerNode is
// exceeded.
type TraversalLimitError struct {
	Kind   string // "max_steps" | "max_fanout"
	NodeID string
	Step   int
	Limit  int
}

func (e *TraversalLimitError) Error() string {
	return fmt.Sprintf("dag: %s exceeded at node %q (step %d, limit %d)", e.Kind, e.NodeID, e.Step, e.Limit)
}

// ContextConflictError covers protected-namespace writes and unknown merge
// policies — both caller bugs, both fatal.
type ContextConflictError struct {
	Key    string
	Reason string
}

func (e *ContextConflictError) Error() string {
	return fmt.Sprintf("dag: context conflict on %q: %s", e.Key, e.Reason)
}
