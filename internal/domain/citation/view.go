package citation

import (
	"context"
	"fmt"
)

// NodeView is a laid-out node as handed to the presentation layer.
type NodeView struct {
	ID              string  `json:"id"`
	RespondentState string  `json:"respondent_state"`
	Year            int     `json:"year"`
	Title           string  `json:"title"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
}

// EdgeView is an exported edge with its hover text.
type EdgeView struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Weight  int    `json:"weight"`
	Tooltip string `json:"tooltip"`
}

// EdgeTooltip formats the "A--B: w" hover text.
func EdgeTooltip(a, b string, weight int) string {
	return fmt.Sprintf("%s--%s: %d", a, b, weight)
}

// Stats counts what happened during a graph build.
type Stats struct {
	Records              int  `json:"records"`
	NodesBuilt           int  `json:"nodes_built"`
	EdgesBuilt           int  `json:"edges_built"`
	UnresolvedReferences int  `json:"unresolved_references"`
	SelfReferences       int  `json:"self_references"`
	IsolatesRemoved      int  `json:"isolates_removed"`
	LowDegreeRemoved     int  `json:"low_degree_removed"`
	LayoutIterations     int  `json:"layout_iterations"`
	LayoutConverged      bool `json:"layout_converged"`
}

// View is the exported graph: sorted node and edge collections.
type View struct {
	RunID string     `json:"run_id,omitempty"`
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
	Stats Stats      `json:"stats"`
}

// GraphRepository persists laid-out citation graphs.
type GraphRepository interface {
	// SaveView replaces the stored graph with v.
	SaveView(ctx context.Context, v *View) error

	// LoadView returns the stored graph, sorted like a freshly built one.
	LoadView(ctx context.Context) (*View, error)
}
