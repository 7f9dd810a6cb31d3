// Package citation_graph builds the undirected judgment citation graph: one
// node per judgment, edge weights counting citations in either direction,
// pruned to the well-connected core and laid out for plotting.
package citation_graph

import (
	"context"
	"time"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// Defaults applied by NewBuilder to zero options.
const (
	DefaultMinDegree  = 5
	DefaultIterations = 50
	DefaultSeed       = 42
	DefaultScale      = 1.0
)

// ErrNoInput is returned by Build for an empty record collection.
var ErrNoInput = errors.New(errors.ErrCodeNoInput, "no judgment records to build a graph from")

// Options configure a Builder.
type Options struct {
	// MinDegree is the pruning threshold: nodes with fewer neighbours are
	// removed.  1 keeps every node that survived isolate removal.
	MinDegree int

	// CascadePruning repeats the low-degree pass until nothing changes.
	CascadePruning bool

	// KeepExternalReferences adds attribute-less nodes for cited
	// identifiers that are not in the collection.
	KeepExternalReferences bool

	Iterations int
	Seed       int64
	Scale      float64

	// Timeout bounds the layout stage.  Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Result is the laid-out graph.
type Result = citation.View

// Builder is safe for concurrent use; every Build works on its own graph.
type Builder struct {
	opts   Options
	logger logging.Logger
}

// NewBuilder fills zero options with the defaults.
func NewBuilder(opts Options, logger logging.Logger) *Builder {
	if opts.MinDegree <= 0 {
		opts.MinDegree = DefaultMinDegree
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{opts: opts, logger: logger.Named("citation_graph")}
}

// Options returns the effective options.
func (b *Builder) Options() Options { return b.opts }

// Build assembles, prunes and lays out the citation graph of records.
func (b *Builder) Build(ctx context.Context, records []*judgment.JudgmentRecord) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrNoInput
	}
	start := time.Now()

	g, stats := b.Assemble(records)
	b.Prune(g, &stats)

	layoutCtx := ctx
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		layoutCtx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}
	layout, err := SpringLayout(layoutCtx, g, LayoutOptions{
		Iterations: b.opts.Iterations,
		Seed:       b.opts.Seed,
		Scale:      b.opts.Scale,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLayoutFailed, "layout aborted")
	}
	stats.LayoutIterations = layout.Iterations
	stats.LayoutConverged = layout.Converged
	if !layout.Converged && layoutCtx.Err() != nil {
		b.logger.Warn("layout stopped by deadline", logging.Int("iterations", layout.Iterations))
	}

	view := project(g, layout.Positions)
	view.Stats = stats

	logging.LogOperationDuration(b.logger, "build_citation_graph", start,
		logging.Int(logging.FieldRecordCount, len(records)),
		logging.Int("nodes", len(view.Nodes)),
		logging.Int("edges", len(view.Edges)))
	return view, nil
}

// Assemble creates the unpruned graph.  Nodes come first so that every
// reference can be resolved against the complete node set; a later record
// with the same identifier replaces the attributes of an earlier one.
func (b *Builder) Assemble(records []*judgment.JudgmentRecord) (*citation.Graph, citation.Stats) {
	g := citation.NewGraph()
	stats := citation.Stats{Records: len(records)}

	for _, r := range records {
		if r == nil || !judgment.IsIdentifier(r.Identifier) {
			continue
		}
		g.UpsertNode(citation.Node{
			ID:              r.Identifier,
			RespondentState: r.RespondentState,
			Year:            r.Year(),
			Title:           r.Title,
		})
	}

	for _, r := range records {
		if r == nil || !g.HasNode(r.Identifier) {
			continue
		}
		seen := make(map[string]struct{}, len(r.RelatedCases))
		for _, target := range r.RelatedCases {
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}

			if target == r.Identifier {
				stats.SelfReferences++
				continue
			}
			if !g.HasNode(target) {
				if !b.opts.KeepExternalReferences {
					stats.UnresolvedReferences++
					continue
				}
				g.UpsertNode(citation.Node{ID: target, External: true})
			}
			if err := g.AddWeight(r.Identifier, target, 1); err != nil {
				b.logger.Warn("edge skipped",
					logging.String(logging.FieldIdentifier, r.Identifier),
					logging.String("target", target),
					logging.Err(err))
			}
		}
	}

	stats.NodesBuilt = g.NodeCount()
	stats.EdgesBuilt = g.EdgeCount()
	return g, stats
}

// Prune removes isolates, then every node whose degree is below MinDegree.
// Degrees are snapshotted once after isolate removal, so a node never falls
// below the threshold because a neighbour was pruned in the same pass.  With
// CascadePruning the pass repeats on the reduced graph until it is stable.
func (b *Builder) Prune(g *citation.Graph, stats *citation.Stats) {
	stats.IsolatesRemoved += g.RemoveIsolates()
	for {
		removed := 0
		for id, deg := range g.Degrees() {
			if deg < b.opts.MinDegree {
				g.RemoveNode(id)
				removed++
			}
		}
		stats.LowDegreeRemoved += removed
		if !b.opts.CascadePruning || removed == 0 {
			return
		}
	}
}

func project(g *citation.Graph, pos map[string]Point) *Result {
	view := &Result{
		Nodes: make([]citation.NodeView, 0, g.NodeCount()),
		Edges: make([]citation.EdgeView, 0, g.EdgeCount()),
	}
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		p := pos[id]
		view.Nodes = append(view.Nodes, citation.NodeView{
			ID:              n.ID,
			RespondentState: n.RespondentState,
			Year:            n.Year,
			Title:           n.Title,
			X:               p.X,
			Y:               p.Y,
		})
	}
	for _, e := range g.Edges() {
		view.Edges = append(view.Edges, citation.EdgeView{
			Source:  e.Key.A,
			Target:  e.Key.B,
			Weight:  e.Weight,
			Tooltip: citation.EdgeTooltip(e.Key.A, e.Key.B, e.Weight),
		})
	}
	return view
}
