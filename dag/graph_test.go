package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentDAG_Node(t *testing.T) {
	g := simpleGraph(t)
	n, ok := g.Node("weather")
	require.True(t, ok)
	assert.Equal(t, KindAction, n.Type)

	_, ok = g.Node("nope")
	assert.False(t, ok)
}

func TestIntentDAG_Predecessors(t *testing.T) {
	g := simpleGraph(t)
	assert.ElementsMatch(t, []string{"start"}, g.Predecessors("weather"))
	assert.Empty(t, g.Predecessors("start"))
}

func TestIntentDAG_OutgoingLabels(t *testing.T) {
	g := simpleGraph(t)
	// "clarification" < "weather" lexically: assert the exact sorted
	// slice, not just set membership, since callers rely on stable order.
	assert.Equal(t, []string{"clarification", "weather"}, g.OutgoingLabels("start"))
}

func TestIntentDAG_OutgoingLabels_SortedAcrossManyLabels(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "start", Type: KindClassifier}).
		AddNode(GraphNode{ID: "end", Type: KindClarification}).
		AddEdge("start", "end", "zebra").
		AddEdge("start", "end", "apple").
		AddEdge("start", "end", "mango").
		SetEntrypoints("start").
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"apple", "mango", "zebra"}, g.OutgoingLabels("start"))
}

func TestIntentDAG_Metadata_ReturnsCopy(t *testing.T) {
	g, err := NewBuilder().
		AddNode(GraphNode{ID: "a", Type: KindClarification}).
		SetEntrypoints("a").
		WithMetadata("title", "demo").
		Build()
	require.NoError(t, err)

	md := g.Metadata()
	md["title"] = "mutated"
	assert.Equal(t, "demo", g.Metadata()["title"])
}

func TestIntentDAG_Next_UnknownEdgeReturnsEmpty(t *testing.T) {
	g := simpleGraph(t)
	assert.Empty(t, g.Next("start", "nonexistent-label"))
}
