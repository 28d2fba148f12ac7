package nodes

import (
	"context"
	"strings"
	"time"

	"github.com/dshills/intentrouter-go/dag"
)

// ActionFunc is the host-supplied callable an Action node invokes.
// kwargs is the merged params ∪ context_read map (spec §4.6 step 2);
// the return value becomes ExecutionResult.Data and action_result.
type ActionFunc func(ctx context.Context, kwargs map[string]any) (any, error)

// Action implements dag.NodeImpl for action nodes: it invokes a
// host-supplied callable with parameters drawn from context (spec
// §4.6).
type Action struct {
	NodeID             string
	Fn                 ActionFunc
	ParamKey           string // defaults to "extracted_params"
	ParamKeys          []string
	ContextRead        []string
	ContextWrite       []string
	TerminateOnSuccess bool // defaults true via NewAction

	seenFirstSeen map[string]bool
}

// NewAction returns an Action with TerminateOnSuccess defaulted true,
// matching the spec's default.
func NewAction(nodeID string, fn ActionFunc) *Action {
	return &Action{NodeID: nodeID, Fn: fn, TerminateOnSuccess: true, seenFirstSeen: make(map[string]bool)}
}

// Execute implements dag.NodeImpl.
func (a *Action) Execute(ctx context.Context, input string, rc *dag.Context) (dag.ExecutionResult, error) {
	keys := a.paramKeys()

	var params map[string]any
	for _, key := range keys {
		if v, ok := rc.Get(key); ok {
			if m, ok := v.(map[string]any); ok {
				params = m
				break
			}
		}
	}
	if params == nil {
		params = map[string]any{}
	}

	kwargs := make(map[string]any, len(params)+len(a.ContextRead))
	for k, v := range params {
		kwargs[k] = v
	}
	for _, key := range a.ContextRead {
		if v, ok := rc.Get(key); ok {
			kwargs[key] = v
		}
	}

	result, err := a.Fn(ctx, kwargs)
	if err != nil {
		return dag.ExecutionResult{}, &dag.ActionExecutionError{NodeID: a.NodeID, Cause: err}
	}

	patch := map[string]any{
		"action_result": result,
		"action_name":   a.NodeID,
	}
	for _, key := range a.ContextWrite {
		if v, ok := kwargs[key]; ok {
			patch[key] = v
		}
	}
	a.applySemanticWrites(rc, patch, kwargs)

	var nextEdges []string
	if !a.TerminateOnSuccess {
		nextEdges = []string{"next"}
	}

	return dag.ExecutionResult{
		Data:         result,
		NextEdges:    nextEdges,
		Terminate:    a.TerminateOnSuccess,
		ContextPatch: patch,
	}, nil
}

func (a *Action) paramKeys() []string {
	if len(a.ParamKeys) > 0 {
		return a.ParamKeys
	}
	key := a.ParamKey
	if key == "" {
		key = "extracted_params"
	}
	return []string{key}
}

// applySemanticWrites handles the two well-known semantic write keys:
// user.first_seen (set once, when it is declared in context_write or
// present in the call kwargs) and each *.requests key declared in
// context_write (incremented on every emission).
func (a *Action) applySemanticWrites(rc *dag.Context, patch, kwargs map[string]any) {
	if _, hasKwarg := kwargs["user.first_seen"]; hasKwarg || a.writesKey("user.first_seen") {
		if !a.seenFirstSeen["user.first_seen"] && !rc.Has("user.first_seen") {
			patch["user.first_seen"] = time.Now().UTC()
			a.seenFirstSeen["user.first_seen"] = true
		}
	}

	for _, key := range a.ContextWrite {
		if !strings.HasSuffix(key, ".requests") {
			continue
		}
		count := int64(0)
		if existing, ok := rc.Get(key); ok {
			if n, ok := toInt64(existing); ok {
				count = n
			}
		}
		patch[key] = count + 1
	}
}

func (a *Action) writesKey(key string) bool {
	for _, k := range a.ContextWrite {
		if k == key {
			return true
		}
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
