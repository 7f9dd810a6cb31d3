package citation_graph

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func record(t *testing.T, id string, related ...string) *judgment.JudgmentRecord {
	t.Helper()
	rec, err := judgment.NewJudgmentRecord(judgment.RecordInput{
		Identifier:      id,
		Title:           "CASE " + id,
		RespondentState: "Utopia",
		DecisionDate:    judgment.NewDecisionDate(time.Date(2010, 3, 4, 0, 0, 0, 0, time.UTC)),
		RelatedCases:    related,
	})
	require.NoError(t, err)
	return rec
}

// ids yields n distinct identifiers with the given two-digit prefix.
func ids(prefix, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d%03d/%02d", prefix, i, 10)
	}
	return out
}

func TestBuild_NoInput(t *testing.T) {
	_, err := NewBuilder(Options{}, nil).Build(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoInput)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoInput))
}

func TestAssemble_MutualCitationWeighsTwo(t *testing.T) {
	b := NewBuilder(Options{}, nil)
	forward := []*judgment.JudgmentRecord{record(t, "100/01", "200/02"), record(t, "200/02", "100/01")}
	backward := []*judgment.JudgmentRecord{forward[1], forward[0]}

	g1, _ := b.Assemble(forward)
	g2, _ := b.Assemble(backward)

	assert.Equal(t, 2, g1.Weight("100/01", "200/02"))
	assert.Equal(t, 2, g1.Weight("200/02", "100/01"))
	assert.Equal(t, g1.Edges(), g2.Edges())
}

func TestAssemble_ReferenceRules(t *testing.T) {
	recs := []*judgment.JudgmentRecord{
		record(t, "100/01", "200/02", "200/02", "100/01", "999/99"),
		record(t, "200/02"),
	}

	g, stats := NewBuilder(Options{}, nil).Assemble(recs)
	assert.Equal(t, 1, g.Weight("100/01", "200/02"), "duplicates within a record count once")
	assert.Equal(t, 1, stats.SelfReferences)
	assert.Equal(t, 1, stats.UnresolvedReferences)
	assert.False(t, g.HasNode("999/99"))
	assert.Equal(t, 2, stats.NodesBuilt)
	assert.Equal(t, 1, stats.EdgesBuilt)

	g, stats = NewBuilder(Options{KeepExternalReferences: true}, nil).Assemble(recs)
	require.True(t, g.HasNode("999/99"))
	ext, _ := g.Node("999/99")
	assert.True(t, ext.External)
	assert.Equal(t, 0, stats.UnresolvedReferences)
	assert.Equal(t, 3, stats.NodesBuilt)
}

func TestAssemble_LaterRecordWins(t *testing.T) {
	first := record(t, "100/01")
	second, err := judgment.NewJudgmentRecord(judgment.RecordInput{Identifier: "100/01", RespondentState: "Atlantis"})
	require.NoError(t, err)

	g, _ := NewBuilder(Options{}, nil).Assemble([]*judgment.JudgmentRecord{first, second})
	n, ok := g.Node("100/01")
	require.True(t, ok)
	assert.Equal(t, "Atlantis", n.RespondentState)
	assert.Equal(t, 0, n.Year)
	assert.Equal(t, 1, g.NodeCount())
}

// starGraph returns records where hub X has degree 4 and hub Y degree 6, X
// and Y adjacent, every other node a leaf.
func starGraph(t *testing.T) []*judgment.JudgmentRecord {
	const x, y = "11111/11", "22222/22"
	xLeaves := ids(33, 3)
	yLeaves := ids(44, 5)

	recs := []*judgment.JudgmentRecord{
		record(t, x, append([]string{y}, xLeaves...)...),
		record(t, y, yLeaves...),
	}
	for _, id := range append(xLeaves, yLeaves...) {
		recs = append(recs, record(t, id))
	}
	return recs
}

func TestPrune_SinglePassUsesSnapshot(t *testing.T) {
	b := NewBuilder(Options{}, nil)
	g, stats := b.Assemble(starGraph(t))
	require.Equal(t, 4, g.Degree("11111/11"))
	require.Equal(t, 6, g.Degree("22222/22"))

	b.Prune(g, &stats)

	assert.False(t, g.HasNode("11111/11"))
	assert.True(t, g.HasNode("22222/22"), "degree was 6 when the pass started")
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, 9, stats.LowDegreeRemoved)
}

func TestPrune_Cascade(t *testing.T) {
	b := NewBuilder(Options{CascadePruning: true}, nil)
	g, stats := b.Assemble(starGraph(t))
	b.Prune(g, &stats)

	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 10, stats.LowDegreeRemoved)
}

func TestPrune_IsolatesFirst(t *testing.T) {
	b := NewBuilder(Options{MinDegree: 1}, nil)
	g, stats := b.Assemble([]*judgment.JudgmentRecord{
		record(t, "100/01", "200/02"),
		record(t, "200/02"),
		record(t, "300/03"),
	})
	b.Prune(g, &stats)

	assert.Equal(t, 1, stats.IsolatesRemoved)
	assert.Equal(t, 0, stats.LowDegreeRemoved)
	assert.Equal(t, []string{"100/01", "200/02"}, g.NodeIDs())
}

// clique returns n records citing each other pairwise.
func clique(t *testing.T, n int) []*judgment.JudgmentRecord {
	members := ids(55, n)
	recs := make([]*judgment.JudgmentRecord, n)
	for i, id := range members {
		recs[i] = record(t, id, members...)
	}
	return recs
}

func TestBuild_CliqueSurvivesDefaultPruning(t *testing.T) {
	view, err := NewBuilder(Options{}, nil).Build(context.Background(), clique(t, 6))
	require.NoError(t, err)

	assert.Len(t, view.Nodes, 6)
	assert.Len(t, view.Edges, 15)
	for _, e := range view.Edges {
		assert.Equal(t, 2, e.Weight)
		assert.Less(t, e.Source, e.Target)
		assert.Equal(t, citation.EdgeTooltip(e.Source, e.Target, 2), e.Tooltip)
	}
	for i := 1; i < len(view.Nodes); i++ {
		assert.Less(t, view.Nodes[i-1].ID, view.Nodes[i].ID)
	}
	assert.Equal(t, 6, view.Stats.SelfReferences)
	assert.Equal(t, 2010, view.Nodes[0].Year)
	assert.Equal(t, "Utopia", view.Nodes[0].RespondentState)
}

func TestBuild_LayoutDeterministicAndScaled(t *testing.T) {
	recs := clique(t, 4)
	b := NewBuilder(Options{MinDegree: 1, Scale: 2}, nil)

	v1, err := b.Build(context.Background(), recs)
	require.NoError(t, err)
	v2, err := b.Build(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, v1.Nodes, v2.Nodes)

	maxAbs, sumX, sumY := 0.0, 0.0, 0.0
	for _, n := range v1.Nodes {
		assert.LessOrEqual(t, math.Abs(n.X), 2.0+1e-9)
		assert.LessOrEqual(t, math.Abs(n.Y), 2.0+1e-9)
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(n.X), math.Abs(n.Y)))
		sumX += n.X
		sumY += n.Y
	}
	assert.InDelta(t, 2.0, maxAbs, 1e-9)
	assert.InDelta(t, 0, sumX, 1e-9)
	assert.InDelta(t, 0, sumY, 1e-9)
	assert.Positive(t, v1.Stats.LayoutIterations)
	assert.LessOrEqual(t, v1.Stats.LayoutIterations, DefaultIterations)

	other, err := NewBuilder(Options{MinDegree: 1, Scale: 2, Seed: 7}, nil).Build(context.Background(), recs)
	require.NoError(t, err)
	assert.NotEqual(t, v1.Nodes, other.Nodes)
}

func TestBuild_EmptyAfterPruning(t *testing.T) {
	view, err := NewBuilder(Options{}, nil).Build(context.Background(), []*judgment.JudgmentRecord{
		record(t, "100/01", "200/02"),
		record(t, "200/02"),
	})
	require.NoError(t, err)
	assert.Empty(t, view.Nodes)
	assert.Empty(t, view.Edges)
	assert.Equal(t, 2, view.Stats.NodesBuilt)
	assert.True(t, view.Stats.LayoutConverged)
}

func TestSpringLayout_Context(t *testing.T) {
	g, _ := NewBuilder(Options{}, nil).Assemble(clique(t, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SpringLayout(ctx, g, LayoutOptions{Iterations: 10, Scale: 1})
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err := SpringLayout(ctx, g, LayoutOptions{Iterations: 10, Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Iterations)
	assert.False(t, res.Converged)
	assert.Len(t, res.Positions, 3)
}

func TestSpringLayout_SingleNode(t *testing.T) {
	g := citation.NewGraph()
	g.UpsertNode(citation.Node{ID: "100/01"})
	res, err := SpringLayout(context.Background(), g, LayoutOptions{Iterations: 10, Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, Point{}, res.Positions["100/01"])
}
