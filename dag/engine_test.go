package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/intentrouter-go/dag/emit"
)

func nodeFuncImpl(fn NodeFunc) NodeImpl { return fn }

func resolverFromMap(impls map[string]NodeImpl) Resolver {
	return func(node GraphNode) (NodeImpl, error) {
		impl, ok := impls[node.ID]
		if !ok {
			return nil, errors.New("no impl registered for " + node.ID)
		}
		return impl, nil
	}
}

func TestRunDAG_LinearTraversalTerminates(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "start", Type: KindAction}).
		AddNode(GraphNode{ID: "end", Type: KindClarification}).
		AddEdge("start", "end", "next").
		SetEntrypoints("start").
		Build()
	require.NoError(t, err)

	impls := map[string]NodeImpl{
		"start": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{NextEdges: []string{"next"}, ContextPatch: map[string]any{"seen": "start"}}, nil
		}),
		"end": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{Terminate: true, Data: "done"}, nil
		}),
	}

	rc := newTestContext()
	result, _, err := RunDAG(context.Background(), g, rc, "hello", WithResolver(resolverFromMap(impls)))
	require.NoError(t, err)
	assert.Equal(t, "done", result.Data)

	v, ok := rc.Get("seen")
	require.True(t, ok)
	assert.Equal(t, "start", v)
}

func TestRunDAG_RequiresResolver(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "a", Type: KindClarification}).
		SetEntrypoints("a").
		Build()
	require.NoError(t, err)

	_, _, err = RunDAG(context.Background(), g, newTestContext(), "x")
	require.Error(t, err)
}

func TestRunDAG_ErrorRoutesToErrorEdge(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "start", Type: KindAction}).
		AddNode(GraphNode{ID: "recover", Type: KindClarification}).
		AddEdge("start", "recover", ErrorEdgeLabel).
		SetEntrypoints("start").
		Build()
	require.NoError(t, err)

	impls := map[string]NodeImpl{
		"start": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{}, errors.New("boom")
		}),
		"recover": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{Terminate: true, Data: "recovered"}, nil
		}),
	}

	rc := newTestContext()
	result, _, err := RunDAG(context.Background(), g, rc, "x", WithResolver(resolverFromMap(impls)))
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Data)

	errNode, ok := rc.Get("error_node")
	require.True(t, ok)
	assert.Equal(t, "start", errNode)
}

func TestRunDAG_ErrorWithNoErrorEdgeFails(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "start", Type: KindAction}).
		SetEntrypoints("start").
		Build()
	require.NoError(t, err)

	impls := map[string]NodeImpl{
		"start": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{}, errors.New("boom")
		}),
	}

	_, _, err = RunDAG(context.Background(), g, newTestContext(), "x", WithResolver(resolverFromMap(impls)))
	require.Error(t, err)
	var travErr *TraversalError
	require.ErrorAs(t, err, &travErr)
}

func TestRunDAG_MaxStepsLimit(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "a", Type: KindAction}).
		AddNode(GraphNode{ID: "b", Type: KindAction}).
		AddEdge("a", "b", "next").
		AddEdge("b", "a", "next").
		SetEntrypoints("a").
		Build(true)
	require.NoError(t, err)

	loopImpl := nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
		return ExecutionResult{NextEdges: []string{"next"}}, nil
	})
	impls := map[string]NodeImpl{"a": loopImpl, "b": loopImpl}

	_, _, err = RunDAG(context.Background(), g, newTestContext(), "x",
		WithResolver(resolverFromMap(impls)), WithMaxSteps(2))
	require.Error(t, err)
	var limitErr *TraversalLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "max_steps", limitErr.Kind)
	assert.Equal(t, 3, limitErr.Step)
}

func TestRunDAG_MaxFanoutLimit(t *testing.T) {
	b := NewBuilder().AddNode(GraphNode{ID: "start", Type: KindAction})
	for i := 0; i < 20; i++ {
		id := "leaf" + string(rune('a'+i))
		b.AddNode(GraphNode{ID: id, Type: KindClarification})
		b.AddEdge("start", id, "fanout")
	}
	b.SetEntrypoints("start")
	g, err := b.Build(true)
	require.NoError(t, err)

	impls := map[string]NodeImpl{
		"start": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{NextEdges: []string{"fanout"}}, nil
		}),
	}

	_, _, err = RunDAG(context.Background(), g, newTestContext(), "x",
		WithResolver(resolverFromMap(impls)), WithMaxFanout(3))
	require.Error(t, err)
	var limitErr *TraversalLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "max_fanout", limitErr.Kind)
}

func TestRunDAG_MemoizationSkipsReexecution(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "start", Type: KindAction}).
		AddNode(GraphNode{ID: "shared", Type: KindAction}).
		AddNode(GraphNode{ID: "end", Type: KindClarification}).
		AddEdge("start", "shared", "a").
		AddEdge("start", "shared", "b").
		AddEdge("shared", "end", "next").
		SetEntrypoints("start").
		Build(true)
	require.NoError(t, err)

	calls := 0
	impls := map[string]NodeImpl{
		"start": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{NextEdges: []string{"a", "b"}}, nil
		}),
		"shared": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			calls++
			return ExecutionResult{NextEdges: []string{"next"}}, nil
		}),
		"end": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{Terminate: true}, nil
		}),
	}

	_, _, err = RunDAG(context.Background(), g, newTestContext(), "x",
		WithResolver(resolverFromMap(impls)), WithMemoization(true))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

type collectingEmitter struct {
	events []emit.Event
}

func (c *collectingEmitter) Emit(e emit.Event) { c.events = append(c.events, e) }
func (c *collectingEmitter) EmitBatch(_ context.Context, es []emit.Event) error {
	c.events = append(c.events, es...)
	return nil
}
func (c *collectingEmitter) Flush(context.Context) error { return nil }

func TestRunDAG_EmitsLifecycleEvents(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "start", Type: KindClarification}).
		SetEntrypoints("start").
		Build()
	require.NoError(t, err)

	impls := map[string]NodeImpl{
		"start": nodeFuncImpl(func(ctx context.Context, input string, rc *Context) (ExecutionResult, error) {
			return ExecutionResult{Terminate: true}, nil
		}),
	}

	collector := &collectingEmitter{}
	_, _, err = RunDAG(context.Background(), g, newTestContext(), "x",
		WithResolver(resolverFromMap(impls)), WithEmitter(collector))
	require.NoError(t, err)

	var msgs []string
	for _, e := range collector.events {
		msgs = append(msgs, e.Msg)
	}
	assert.Contains(t, msgs, "traversal_started")
	assert.Contains(t, msgs, "step_started")
	assert.Contains(t, msgs, "traversal_finished")
}
