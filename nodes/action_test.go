package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/intentrouter-go/dag"
)

func TestAction_InvokesFnWithMergedParams(t *testing.T) {
	rc := newTestRC()
	rc.Set("extracted_params", map[string]any{"city": "Berlin"}, "test")
	rc.Set("session_id", "abc123", "test")

	var gotKwargs map[string]any
	a := NewAction("weather", func(ctx context.Context, kwargs map[string]any) (any, error) {
		gotKwargs = kwargs
		return "sunny", nil
	})
	a.ContextRead = []string{"session_id"}

	result, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	assert.Equal(t, "sunny", result.Data)
	assert.True(t, result.Terminate)
	assert.Equal(t, "Berlin", gotKwargs["city"])
	assert.Equal(t, "abc123", gotKwargs["session_id"])
}

func TestAction_FnErrorWraps(t *testing.T) {
	rc := newTestRC()
	a := NewAction("weather", func(ctx context.Context, kwargs map[string]any) (any, error) {
		return nil, errors.New("lookup failed")
	})

	_, err := a.Execute(context.Background(), "x", rc)
	require.Error(t, err)
	var actionErr *dag.ActionExecutionError
	require.ErrorAs(t, err, &actionErr)
}

func TestAction_NonTerminatingContinuesTraversal(t *testing.T) {
	rc := newTestRC()
	a := NewAction("step", func(ctx context.Context, kwargs map[string]any) (any, error) {
		return "ok", nil
	})
	a.TerminateOnSuccess = false

	result, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	assert.False(t, result.Terminate)
	assert.Equal(t, []string{"next"}, result.NextEdges)
}

func TestAction_ContextWriteProjectsKwargsKeys(t *testing.T) {
	rc := newTestRC()
	rc.Set("extracted_params", map[string]any{"city": "Berlin"}, "test")
	a := NewAction("weather", func(ctx context.Context, kwargs map[string]any) (any, error) {
		return "sunny", nil
	})
	a.ContextWrite = []string{"city"}

	result, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", result.ContextPatch["city"])
}

func TestAction_FirstSeenSetOnce(t *testing.T) {
	rc := newTestRC()
	a := NewAction("greet", func(ctx context.Context, kwargs map[string]any) (any, error) {
		return "hi", nil
	})
	a.ContextWrite = []string{"user.first_seen"}

	result, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	patch := dag.NewPatch(a.NodeID)
	patch.Data = result.ContextPatch
	require.NoError(t, rc.ApplyPatch(patch))
	firstSeen, ok := rc.Get("user.first_seen")
	require.True(t, ok)

	result2, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	_, present := result2.ContextPatch["user.first_seen"]
	assert.False(t, present)
	_ = firstSeen
}

func TestAction_RequestsCounterIncrements(t *testing.T) {
	rc := newTestRC()
	a := NewAction("greet", func(ctx context.Context, kwargs map[string]any) (any, error) {
		return "hi", nil
	})
	a.ContextWrite = []string{"user.requests"}

	result1, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result1.ContextPatch["user.requests"])
	patch := dag.NewPatch(a.NodeID)
	patch.Data = result1.ContextPatch
	require.NoError(t, rc.ApplyPatch(patch))

	result2, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result2.ContextPatch["user.requests"])
}

func TestAction_ParamKeysFirstMapWins(t *testing.T) {
	rc := newTestRC()
	rc.Set("alt_params", map[string]any{"x": 1}, "test")

	var gotKwargs map[string]any
	a := NewAction("step", func(ctx context.Context, kwargs map[string]any) (any, error) {
		gotKwargs = kwargs
		return nil, nil
	})
	a.ParamKeys = []string{"missing_params", "alt_params"}

	_, err := a.Execute(context.Background(), "x", rc)
	require.NoError(t, err)
	assert.Equal(t, 1, gotKwargs["x"])
}
