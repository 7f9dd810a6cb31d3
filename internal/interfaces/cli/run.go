package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/pipeline"
	pgrepo "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

type runOptions struct {
	input        string
	batch        string
	outDir       string
	upload       bool
	storeRecords bool
	storeGraph   bool
	index        bool
}

// NewRunCmd runs the whole pipeline and publishes its exports.
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize documents, build the graph and export everything",
		Long: "Run every stage over a document collection and export records.csv,\n" +
			"records.json and graph.json to --out-dir and/or object storage.  Records and\n" +
			"the run summary can be stored in PostgreSQL, the graph in Neo4j and the\n" +
			"records in the OpenSearch index.  When Redis is enabled a lock keeps two\n" +
			"runs from exporting at the same time.",
		Example: "  caselaw run --input docs.json --out-dir ./out\n" +
			"  caselaw run --batch 2024-01.json --upload --store-records --store-graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "JSON array of raw documents (- for stdin)")
	f.StringVar(&opts.batch, "batch", "", "raw-document batch stored in object storage")
	f.StringVar(&opts.outDir, "out-dir", "", "directory for the export files")
	f.BoolVar(&opts.upload, "upload", false, "upload the exports to object storage")
	f.BoolVar(&opts.storeRecords, "store-records", false, "upsert records and the run summary into PostgreSQL")
	f.BoolVar(&opts.storeGraph, "store-graph", false, "replace the graph stored in Neo4j")
	f.BoolVar(&opts.index, "index", false, "upsert records into the OpenSearch index")
	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if opts.outDir == "" && !opts.upload && !opts.storeRecords && !opts.storeGraph && !opts.index {
		return errors.New(errors.ErrCodeValidation,
			"nothing to export; set --out-dir, --upload, --store-records, --store-graph or --index")
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	b := newBackends(cliCtx)
	defer b.Close()

	docs, err := b.loadDocuments(ctx, cmd, opts.input, opts.batch)
	if err != nil {
		return err
	}

	release, err := b.lockRun(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := b.pipeline().Run(ctx, docs)
	if err != nil {
		return err
	}
	logGraphStats(cliCtx.Logger, res.Graph)

	summary := summarize(res)
	if err := exportRun(ctx, b, opts, res, summary); err != nil {
		return err
	}
	return PrintResult(cmd, summary)
}

// exportRun writes the artifacts and stores, in that order, appending what
// it wrote to summary.
func exportRun(ctx context.Context, b *backends, opts *runOptions, res *pipeline.Result, summary *RunSummary) error {
	start := time.Now()
	arts, err := renderArtifacts(res.Records, res.Graph)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		paths, err := writeArtifacts(opts.outDir, arts)
		if err != nil {
			return err
		}
		summary.Artifacts = append(summary.Artifacts, paths...)
	}
	if opts.upload {
		store, err := b.artifacts()
		if err != nil {
			return err
		}
		keys, err := store.PutExports(ctx, res.RunID, arts)
		if err != nil {
			return err
		}
		summary.Artifacts = append(summary.Artifacts, keys...)
	}
	prometheus.RecordStage(b.metrics, prometheus.StageExport, time.Since(start))

	if opts.storeRecords {
		if err := storeRecords(ctx, b, res.Records); err != nil {
			return err
		}
		if err := saveRunSummary(ctx, b, res); err != nil {
			return err
		}
	}
	if opts.storeGraph {
		repo, err := b.graphs()
		if err != nil {
			return err
		}
		if err := repo.SaveView(ctx, res.Graph); err != nil {
			return err
		}
	}
	if opts.index {
		if err := indexRecords(ctx, b, res.Records); err != nil {
			return err
		}
	}
	return nil
}

func saveRunSummary(ctx context.Context, b *backends, res *pipeline.Result) error {
	id, err := uuid.Parse(res.RunID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "run id is not a uuid")
	}
	runs, err := b.runs(ctx)
	if err != nil {
		return err
	}
	s := pgrepo.RunSummary{
		RunID:     id,
		Documents: res.Documents,
		Records:   len(res.Records),
		Rejected:  res.RejectedTotal(),
		CacheHits: res.CacheHits,
		Duration:  res.Duration,
	}
	if res.Graph != nil {
		s.GraphNodes = len(res.Graph.Nodes)
		s.GraphEdges = len(res.Graph.Edges)
	}
	if err := runs.Save(ctx, s); err != nil {
		return err
	}
	b.log.Info("Recorded pipeline run", logging.String(logging.FieldRunID, res.RunID))
	return nil
}
