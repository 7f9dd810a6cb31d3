package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/analytics"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// Aggregations accepted by stats --by.
const (
	ByYearState = "year-state"
	ByArticles  = "articles"
	ByOutcomes  = "outcomes"
)

type statsOptions struct {
	input       string
	records     string
	fromDB      bool
	by          string
	exclude     []string
	split       float64
	seed        int64
	splitDir    string
	predictions string
	scorerURL   string
}

// NewStatsCmd aggregates a record collection.
func NewStatsCmd() *cobra.Command {
	opts := &statsOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate records for charts and classifier evaluation",
		Long: "Count judgments per year and respondent state, articles per state or records\n" +
			"per outcome label.  --split writes a stratified train/test split and\n" +
			"--predictions scores an external classifier's labels against the records;\n" +
			"--scorer-url asks a classifier endpoint for them instead.",
		Example: "  caselaw stats --records records.json --by year-state -o csv\n" +
			"  caselaw stats --from-db --split 0.2 --split-dir ./split\n" +
			"  caselaw stats --records records.json --predictions predicted.json\n" +
			"  caselaw stats --records records.json --scorer-url http://localhost:8500/score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "JSON array of raw documents (- for stdin)")
	f.StringVar(&opts.records, "records", "", "records JSON written by process --records-out")
	f.BoolVar(&opts.fromDB, "from-db", false, "read every record from PostgreSQL")
	f.StringVar(&opts.by, "by", ByOutcomes, "aggregation: year-state, articles or outcomes")
	f.StringSliceVar(&opts.exclude, "exclude-articles", analytics.DefaultArticleExclusions, "article codes left out of --by articles")
	f.Float64Var(&opts.split, "split", 0, "test fraction of a stratified train/test split")
	f.Int64Var(&opts.seed, "seed", 42, "shuffle seed of --split")
	f.StringVar(&opts.splitDir, "split-dir", "", "write train.json and test.json here")
	f.StringVar(&opts.predictions, "predictions", "", "JSON object of identifier to predicted label")
	f.StringVar(&opts.scorerURL, "scorer-url", "", "classifier endpoint scoring each record's law section")
	return cmd
}

func runStats(cmd *cobra.Command, opts *statsOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if opts.predictions != "" && opts.scorerURL != "" {
		return errors.New(errors.ErrCodeValidation, "--predictions and --scorer-url are mutually exclusive")
	}
	ctx, cancel := operationContext(cmd, cliCtx)
	defer cancel()

	b := newBackends(cliCtx)
	defer b.Close()

	records, err := statsRecords(ctx, cmd, b, opts)
	if err != nil {
		return err
	}

	switch {
	case opts.scorerURL != "":
		scorer := newHTTPScorer(&http.Client{Timeout: scorerTimeout}, opts.scorerURL)
		m, err := scoreWithScorer(ctx, records, scorer, cliCtx.Config.Pipeline.Workers)
		if err != nil {
			return err
		}
		return PrintResult(cmd, &ConfusionOutput{Matrix: m})
	case opts.predictions != "":
		m, err := scorePredictions(records, opts.predictions)
		if err != nil {
			return err
		}
		return PrintResult(cmd, &ConfusionOutput{Matrix: m})
	case opts.split > 0:
		out, err := splitRecords(records, opts.split, opts.seed, opts.splitDir)
		if err != nil {
			return err
		}
		return PrintResult(cmd, out)
	}

	switch opts.by {
	case ByYearState:
		return PrintResult(cmd, YearStateTable(analytics.CountByYearAndState(records)))
	case ByArticles:
		return PrintResult(cmd, ArticleTable(analytics.ArticleCountsByState(records, opts.exclude)))
	case ByOutcomes:
		return PrintResult(cmd, OutcomeTable(analytics.OutcomeDistribution(records)))
	}
	return errors.New(errors.ErrCodeValidation, "unknown aggregation").WithDetail("by=" + opts.by)
}

func statsRecords(ctx context.Context, cmd *cobra.Command, b *backends, opts *statsOptions) ([]*judgment.JudgmentRecord, error) {
	switch {
	case opts.records != "":
		return readRecordsFile(opts.records)
	case opts.fromDB:
		return loadAllRecords(ctx, b)
	case opts.input != "":
		docs, err := readDocumentsFile(cmd.InOrStdin(), opts.input)
		if err != nil {
			return nil, err
		}
		res, err := b.pipeline().Process(ctx, docs)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}
	return nil, errors.New(errors.ErrCodeValidation, "one of --input, --records or --from-db is required")
}

// scorePredictions pairs each record's label with the prediction for its
// identifier.  Records without a prediction are skipped.
func scorePredictions(records []*judgment.JudgmentRecord, path string) (*analytics.ConfusionMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, fmt.Sprintf("failed to read %s", path))
	}
	var predicted map[string]judgment.Outcome
	if err := json.Unmarshal(data, &predicted); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentDecode, "failed to decode predictions")
	}
	var actual, pred []judgment.Outcome
	for _, r := range records {
		if p, ok := predicted[r.Identifier]; ok {
			actual = append(actual, r.Outcome)
			pred = append(pred, p)
		}
	}
	if len(actual) == 0 {
		return nil, errors.New(errors.ErrCodeNoInput, "no prediction matches a record identifier")
	}
	return analytics.NewConfusionMatrix(actual, pred)
}

func splitRecords(records []*judgment.JudgmentRecord, frac float64, seed int64, dir string) (*SplitOutput, error) {
	train, test, err := analytics.StratifiedSplit(records, frac, seed)
	if err != nil {
		return nil, err
	}
	out := &SplitOutput{
		Train: analytics.OutcomeDistribution(train),
		Test:  analytics.OutcomeDistribution(test),
	}
	if dir == "" {
		return out, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, fmt.Sprintf("failed to create %s", dir))
	}
	for name, set := range map[string][]*judgment.JudgmentRecord{"train.json": train, "test.json": test} {
		set := set
		p := filepath.Join(dir, name)
		if err := writeFile(p, func(w io.Writer) error { return writeRecordsJSON(w, set) }); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, p)
	}
	sort.Strings(out.Files)
	return out, nil
}

// YearStateTable renders CountByYearAndState.
type YearStateTable []analytics.YearStateCount

func (t YearStateTable) Header() []string { return []string{"year", "respondent_state", "count"} }

func (t YearStateTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, c := range t {
		rows[i] = []string{strconv.Itoa(c.Year), c.State, strconv.Itoa(c.Count)}
	}
	return rows
}

// ArticleTable renders ArticleCountsByState.
type ArticleTable []analytics.ArticleCount

func (t ArticleTable) Header() []string { return []string{"respondent_state", "article", "count"} }

func (t ArticleTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, c := range t {
		rows[i] = []string{c.State, c.Article, strconv.Itoa(c.Count)}
	}
	return rows
}

// OutcomeTable renders OutcomeDistribution in label order.
type OutcomeTable map[judgment.Outcome]int

func (t OutcomeTable) Header() []string { return []string{"outcome", "count"} }

func (t OutcomeTable) Rows() [][]string {
	rows := make([][]string, 0, len(judgment.AllOutcomes))
	for _, o := range judgment.AllOutcomes {
		rows = append(rows, []string{string(o), strconv.Itoa(t[o])})
	}
	return rows
}

// SplitOutput is the label distribution of both halves of a split.
type SplitOutput struct {
	Train map[judgment.Outcome]int `json:"train"`
	Test  map[judgment.Outcome]int `json:"test"`
	Files []string                 `json:"files,omitempty"`
}

func (s *SplitOutput) Header() []string { return []string{"outcome", "train", "test"} }

func (s *SplitOutput) Rows() [][]string {
	rows := make([][]string, 0, len(judgment.AllOutcomes))
	for _, o := range judgment.AllOutcomes {
		rows = append(rows, []string{string(o), strconv.Itoa(s.Train[o]), strconv.Itoa(s.Test[o])})
	}
	return rows
}

// ConfusionOutput renders a confusion matrix with actual labels as rows.
type ConfusionOutput struct {
	Matrix *analytics.ConfusionMatrix
}

func (c *ConfusionOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		*analytics.ConfusionMatrix
		Total    int     `json:"total"`
		Accuracy float64 `json:"accuracy"`
	}{c.Matrix, c.Matrix.Total(), c.Matrix.Accuracy()})
}

func (c *ConfusionOutput) Header() []string {
	h := []string{"actual \\ predicted"}
	for _, l := range c.Matrix.Labels {
		h = append(h, string(l))
	}
	return h
}

func (c *ConfusionOutput) Rows() [][]string {
	rows := make([][]string, 0, len(c.Matrix.Labels)+1)
	for i, l := range c.Matrix.Labels {
		row := []string{string(l)}
		for _, n := range c.Matrix.Cells[i] {
			row = append(row, strconv.Itoa(n))
		}
		rows = append(rows, row)
	}
	acc := []string{"accuracy", strconv.FormatFloat(c.Matrix.Accuracy(), 'f', 4, 64)}
	for len(acc) < len(c.Matrix.Labels)+1 {
		acc = append(acc, "")
	}
	return append(rows, acc)
}
