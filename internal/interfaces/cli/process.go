package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
)

type processOptions struct {
	input      string
	batch      string
	outDir     string
	recordsOut string
	store      bool
}

// NewProcessCmd normalizes raw documents into records without building the
// graph.
func NewProcessCmd() *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Normalize raw judgment documents into records",
		Long: "Extract the sections of every raw document, normalize them into records and\n" +
			"report the rejections.  Records are written as CSV and JSON to --out-dir and,\n" +
			"with --store, upserted into PostgreSQL.",
		Example: "  caselaw process --input docs.json --out-dir ./out\n" +
			"  caselaw process --batch 2024-01.json --records-out records.json --store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "JSON array of raw documents (- for stdin)")
	f.StringVar(&opts.batch, "batch", "", "raw-document batch stored in object storage")
	f.StringVar(&opts.outDir, "out-dir", "", "directory for records.csv and records.json")
	f.StringVar(&opts.recordsOut, "records-out", "", "write full records as JSON for a later graph --records")
	f.BoolVar(&opts.store, "store", false, "upsert records into PostgreSQL")
	return cmd
}

func runProcess(cmd *cobra.Command, opts *processOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	b := newBackends(cliCtx)
	defer b.Close()

	docs, err := b.loadDocuments(ctx, cmd, opts.input, opts.batch)
	if err != nil {
		return err
	}
	res, err := b.pipeline().Process(ctx, docs)
	if err != nil {
		return err
	}
	for _, r := range res.Rejections {
		cliCtx.Logger.Debug("Document rejected",
			logging.Int("index", r.Index),
			logging.String(logging.FieldIdentifier, r.Identifier),
			logging.String("reason", string(r.Reason)),
			logging.String("detail", r.Detail))
	}

	summary := summarize(res)
	if opts.outDir != "" {
		arts, err := renderArtifacts(res.Records, nil)
		if err != nil {
			return err
		}
		if summary.Artifacts, err = writeArtifacts(opts.outDir, arts); err != nil {
			return err
		}
	}
	if opts.recordsOut != "" {
		if err := writeFile(opts.recordsOut, func(w io.Writer) error {
			return writeRecordsJSON(w, res.Records)
		}); err != nil {
			return err
		}
		summary.Artifacts = append(summary.Artifacts, opts.recordsOut)
	}
	if opts.store {
		if err := storeRecords(ctx, b, res.Records); err != nil {
			return err
		}
	}
	return PrintResult(cmd, summary)
}

func storeRecords(ctx context.Context, b *backends, records []*judgment.JudgmentRecord) error {
	repo, err := b.judgments(ctx)
	if err != nil {
		return err
	}
	if err := repo.SaveBatch(ctx, records); err != nil {
		return err
	}
	b.log.Info("Stored records", logging.Int(logging.FieldRecordCount, len(records)))
	return nil
}
