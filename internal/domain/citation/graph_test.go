package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func newTriangle(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range []string{"100/01", "200/02", "300/03"} {
		g.UpsertNode(Node{ID: id})
	}
	require.NoError(t, g.AddWeight("100/01", "200/02", 1))
	require.NoError(t, g.AddWeight("200/02", "300/03", 1))
	require.NoError(t, g.AddWeight("300/03", "100/01", 1))
	return g
}

func TestNewEdgeKey_Canonical(t *testing.T) {
	k1, err := NewEdgeKey("b", "a")
	require.NoError(t, err)
	k2, err := NewEdgeKey("a", "b")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, EdgeKey{A: "a", B: "b"}, k1)

	_, err = NewEdgeKey("a", "a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeGraphInvalidEdge))
}

func TestGraph_AddWeight_Undirected(t *testing.T) {
	g := NewGraph()
	g.UpsertNode(Node{ID: "a"})
	g.UpsertNode(Node{ID: "b"})

	require.NoError(t, g.AddWeight("a", "b", 1))
	require.NoError(t, g.AddWeight("b", "a", 1))

	assert.Equal(t, 2, g.Weight("a", "b"))
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 1, g.Degree("a"))
	assert.Equal(t, []string{"b"}, g.Neighbors("a"))
}

func TestGraph_AddWeight_Rejects(t *testing.T) {
	g := NewGraph()
	g.UpsertNode(Node{ID: "a"})

	assert.Error(t, g.AddWeight("a", "a", 1))
	assert.Error(t, g.AddWeight("a", "missing", 1))
	g.UpsertNode(Node{ID: "b"})
	assert.Error(t, g.AddWeight("a", "b", 0))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestGraph_UpsertNode_LaterWins(t *testing.T) {
	g := NewGraph()
	g.UpsertNode(Node{ID: "a", Title: "first"})
	g.UpsertNode(Node{ID: "b"})
	require.NoError(t, g.AddWeight("a", "b", 1))
	g.UpsertNode(Node{ID: "a", Title: "second"})

	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "second", n.Title)
	assert.Equal(t, 1, g.Weight("a", "b"))
}

func TestGraph_RemoveNode(t *testing.T) {
	g := newTriangle(t)
	g.RemoveNode("100/01")

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 1, g.Degree("200/02"))
	assert.Equal(t, 0, g.Weight("100/01", "200/02"))
}

func TestGraph_RemoveIsolates(t *testing.T) {
	g := newTriangle(t)
	g.UpsertNode(Node{ID: "999/99"})

	assert.Equal(t, 1, g.RemoveIsolates())
	assert.False(t, g.HasNode("999/99"))
	assert.Equal(t, 3, g.NodeCount())
}

func TestGraph_SortedAccessors(t *testing.T) {
	g := newTriangle(t)
	assert.Equal(t, []string{"100/01", "200/02", "300/03"}, g.NodeIDs())

	edges := g.Edges()
	require.Len(t, edges, 3)
	assert.Equal(t, EdgeKey{A: "100/01", B: "200/02"}, edges[0].Key)
	assert.Equal(t, EdgeKey{A: "100/01", B: "300/03"}, edges[1].Key)
	assert.Equal(t, EdgeKey{A: "200/02", B: "300/03"}, edges[2].Key)

	assert.Equal(t, map[string]int{"100/01": 2, "200/02": 2, "300/03": 2}, g.Degrees())
	assert.Equal(t, "citation.Graph{nodes=3 edges=3}", g.String())
}

func TestEdgeTooltip(t *testing.T) {
	assert.Equal(t, "100/01--200/02: 3", EdgeTooltip("100/01", "200/02", 3))
}
