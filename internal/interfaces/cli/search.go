package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
)

type indexOptions struct {
	input   string
	records string
	fromDB  bool
}

// NewIndexCmd loads records into the full-text index.
func NewIndexCmd() *cobra.Command {
	opts := &indexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Upsert records into the OpenSearch full-text index",
		Long: "Index normalized records by application number so that GET\n" +
			"/api/v1/records/search and caselaw search can find them.  The index is\n" +
			"created with the judgment mapping when it does not exist.",
		Example: "  caselaw index --records records.json\n" +
			"  caselaw index --from-db",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "JSON array of raw documents (- for stdin)")
	f.StringVar(&opts.records, "records", "", "records JSON written by process --records-out")
	f.BoolVar(&opts.fromDB, "from-db", false, "read every record from PostgreSQL")
	return cmd
}

// IndexSummary reports an index command.
type IndexSummary struct {
	Index   string `json:"index"`
	Records int    `json:"records"`
}

func (s *IndexSummary) String() string {
	return fmt.Sprintf("indexed %d records into %s", s.Records, s.Index)
}

func runIndex(cmd *cobra.Command, opts *indexOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	b := newBackends(cliCtx)
	defer b.Close()

	records, err := statsRecords(ctx, cmd, b, &statsOptions{input: opts.input, records: opts.records, fromDB: opts.fromDB})
	if err != nil {
		return err
	}
	if err := indexRecords(ctx, b, records); err != nil {
		return err
	}
	return PrintResult(cmd, &IndexSummary{Index: b.index.Name(), Records: len(records)})
}

func indexRecords(ctx context.Context, b *backends, records []*judgment.JudgmentRecord) error {
	idx, err := b.searchIndex(ctx)
	if err != nil {
		return err
	}
	if err := idx.IndexRecords(ctx, records); err != nil {
		return err
	}
	b.log.Info("Indexed records", logging.Int(logging.FieldRecordCount, len(records)), logging.String("index", idx.Name()))
	return nil
}

type searchOptions struct {
	state   string
	outcome string
	year    int
	article string
	limit   int
	offset  int
}

// NewSearchCmd queries the full-text index.
func NewSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Full-text search over indexed records",
		Long: "Match text against record titles, keywords, law sections and judgment\n" +
			"text.  Flags filter exactly; with filters alone the text may be omitted.",
		Example: "  caselaw search \"freedom of expression\" --state Turkey\n" +
			"  caselaw search --article 3 --outcome violation -o json",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.state, "state", "", "respondent state")
	f.StringVar(&opts.outcome, "outcome", "", "violation, no_violation, mixed or other")
	f.IntVar(&opts.year, "year", 0, "decision year")
	f.StringVar(&opts.article, "article", "", "article code such as 10 or P1-1")
	f.IntVar(&opts.limit, "limit", 20, "hits per page")
	f.IntVar(&opts.offset, "offset", 0, "hits to skip")
	return cmd
}

func runSearch(cmd *cobra.Command, text string, opts *searchOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	q := judgment.SearchQuery{
		Text:            text,
		RespondentState: opts.state,
		Outcome:         judgment.Outcome(opts.outcome),
		Year:            opts.year,
		Article:         opts.article,
		Limit:           opts.limit,
		Offset:          opts.offset,
	}
	if err := q.Validate(); err != nil {
		return err
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	b := newBackends(cliCtx)
	defer b.Close()

	idx, err := b.searchIndex(ctx)
	if err != nil {
		return err
	}
	res, err := idx.Search(ctx, q)
	if err != nil {
		return err
	}
	if res.Hits == nil {
		res.Hits = []judgment.SearchHit{}
	}
	return PrintResult(cmd, (*SearchTable)(res))
}

// SearchTable renders search hits.
type SearchTable judgment.SearchResult

func (t *SearchTable) Header() []string {
	return []string{"identifier", "score", "date", "respondent_state", "outcome", "title"}
}

func (t *SearchTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Hits))
	for _, h := range t.Hits {
		rows = append(rows, []string{
			h.Record.Identifier,
			strconv.FormatFloat(h.Score, 'f', 2, 64),
			h.Record.DecisionDate.String(),
			h.Record.RespondentState,
			string(h.Record.Outcome),
			h.Record.Title,
		})
	}
	return rows
}
