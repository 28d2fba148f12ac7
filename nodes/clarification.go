package nodes

import (
	"context"

	"github.com/dshills/intentrouter-go/dag"
)

// Clarification implements dag.NodeImpl for clarification nodes: a
// terminal fallback that presents a message and stops (spec §4.7). It
// has no dependencies and never fails.
type Clarification struct {
	NodeID           string
	ClarificationMsg string
	AvailableOptions []string
}

// Execute implements dag.NodeImpl.
func (c *Clarification) Execute(ctx context.Context, input string, rc *dag.Context) (dag.ExecutionResult, error) {
	return dag.ExecutionResult{
		Data: map[string]any{
			"clarification_message": c.ClarificationMsg,
			"available_options":     c.AvailableOptions,
		},
		Terminate:    true,
		ContextPatch: map[string]any{"clarification_requested": true},
	}, nil
}
