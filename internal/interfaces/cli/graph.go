package cli

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/pipeline"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// recordPageSize is the page size used when reading every stored record.
const recordPageSize = 500

type graphOptions struct {
	input        string
	batch        string
	records      string
	fromDB       bool
	load         bool
	out          string
	store        bool
	minDegree    int
	cascade      bool
	keepExternal bool
	iterations   int
	seed         int64
}

// NewGraphCmd builds and lays out the citation graph.
func NewGraphCmd() *cobra.Command {
	opts := &graphOptions{}
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build the laid-out citation graph",
		Long: "Build the undirected citation graph of a record collection, prune low-degree\n" +
			"nodes and compute a spring layout.  Records come from raw documents\n" +
			"(--input/--batch), a records file written by process --records-out, or the\n" +
			"record store (--from-db).  --load prints the graph last saved with --store.",
		Example: "  caselaw graph --records records.json --out graph.json\n" +
			"  caselaw graph --from-db --min-degree 3 --store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "JSON array of raw documents (- for stdin)")
	f.StringVar(&opts.batch, "batch", "", "raw-document batch stored in object storage")
	f.StringVar(&opts.records, "records", "", "records JSON written by process --records-out")
	f.BoolVar(&opts.fromDB, "from-db", false, "read every record from PostgreSQL")
	f.BoolVar(&opts.load, "load", false, "print the graph stored in Neo4j instead of building one")
	f.StringVar(&opts.out, "out", "", "write graph.json here instead of printing it")
	f.BoolVar(&opts.store, "store", false, "replace the graph stored in Neo4j")
	f.IntVar(&opts.minDegree, "min-degree", 0, "pruning threshold (overrides graph.min_degree)")
	f.BoolVar(&opts.cascade, "cascade", false, "repeat pruning until stable")
	f.BoolVar(&opts.keepExternal, "keep-external", false, "keep cited identifiers outside the collection")
	f.IntVar(&opts.iterations, "iterations", 0, "layout iterations (overrides graph.layout_iterations)")
	f.Int64Var(&opts.seed, "seed", 0, "layout seed (overrides graph.layout_seed)")
	return cmd
}

func runGraph(cmd *cobra.Command, opts *graphOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	applyGraphOverrides(cmd, cliCtx, opts)
	b := newBackends(cliCtx)
	defer b.Close()

	var view *citation.View
	if opts.load {
		repo, err := b.graphs()
		if err != nil {
			return err
		}
		if view, err = repo.LoadView(ctx); err != nil {
			return err
		}
	} else {
		records, err := graphRecords(ctx, cmd, b, opts)
		if err != nil {
			return err
		}
		if view, err = b.pipeline().BuildGraph(ctx, records); err != nil {
			return err
		}
		logGraphStats(cliCtx.Logger, view)
	}

	if opts.store && !opts.load {
		repo, err := b.graphs()
		if err != nil {
			return err
		}
		if err := repo.SaveView(ctx, view); err != nil {
			return err
		}
	}
	if opts.out != "" {
		if err := writeFile(opts.out, func(w io.Writer) error {
			return pipeline.WriteGraphJSON(w, view)
		}); err != nil {
			return err
		}
		PrintSuccess(cmd, "graph written to "+opts.out)
		return nil
	}
	return PrintResult(cmd, &GraphOutput{View: view})
}

// applyGraphOverrides copies explicitly set flags onto the graph section.
func applyGraphOverrides(cmd *cobra.Command, cliCtx *CLIContext, opts *graphOptions) {
	g := &cliCtx.Config.Graph
	f := cmd.Flags()
	if f.Changed("min-degree") {
		g.MinDegree = opts.minDegree
	}
	if f.Changed("cascade") {
		g.CascadePruning = opts.cascade
	}
	if f.Changed("keep-external") {
		g.KeepExternalReferences = opts.keepExternal
	}
	if f.Changed("iterations") {
		g.LayoutIterations = opts.iterations
	}
	if f.Changed("seed") {
		g.LayoutSeed = opts.seed
	}
}

func graphRecords(ctx context.Context, cmd *cobra.Command, b *backends, opts *graphOptions) ([]*judgment.JudgmentRecord, error) {
	sources := 0
	for _, set := range []bool{opts.input != "" || opts.batch != "", opts.records != "", opts.fromDB} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, errors.New(errors.ErrCodeValidation,
			"exactly one of --input/--batch, --records or --from-db is required")
	}

	switch {
	case opts.records != "":
		return readRecordsFile(opts.records)
	case opts.fromDB:
		return loadAllRecords(ctx, b)
	}
	docs, err := b.loadDocuments(ctx, cmd, opts.input, opts.batch)
	if err != nil {
		return nil, err
	}
	res, err := b.pipeline().Process(ctx, docs)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func loadAllRecords(ctx context.Context, b *backends) ([]*judgment.JudgmentRecord, error) {
	repo, err := b.judgments(ctx)
	if err != nil {
		return nil, err
	}
	var all []*judgment.JudgmentRecord
	for offset := 0; ; offset += recordPageSize {
		page, err := repo.List(ctx, judgment.ListFilter{Limit: recordPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < recordPageSize {
			return all, nil
		}
	}
}

func logGraphStats(log logging.Logger, v *citation.View) {
	log.Info("Citation graph built",
		logging.Int("records", v.Stats.Records),
		logging.Int("nodes_built", v.Stats.NodesBuilt),
		logging.Int("edges_built", v.Stats.EdgesBuilt),
		logging.Int("unresolved_references", v.Stats.UnresolvedReferences),
		logging.Int("isolates_removed", v.Stats.IsolatesRemoved),
		logging.Int("low_degree_removed", v.Stats.LowDegreeRemoved),
		logging.Int("nodes", len(v.Nodes)),
		logging.Int("edges", len(v.Edges)),
		logging.Bool("layout_converged", v.Stats.LayoutConverged))
}

// GraphOutput prints a view as JSON or as an edge table.
type GraphOutput struct {
	View *citation.View
}

func (g *GraphOutput) MarshalJSON() ([]byte, error) { return json.Marshal(g.View) }

func (g *GraphOutput) Header() []string {
	return []string{"source", "target", "weight"}
}

func (g *GraphOutput) Rows() [][]string {
	rows := make([][]string, len(g.View.Edges))
	for i, e := range g.View.Edges {
		rows[i] = []string{e.Source, e.Target, strconv.Itoa(e.Weight)}
	}
	return rows
}
