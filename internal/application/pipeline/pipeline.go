// Package pipeline runs the judgment stages end to end: per-document
// extraction and normalization fanned out over a bounded worker group, then
// the citation graph over the full collection.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/citation_graph"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/internal/intelligence/outcome_classifier"
	"github.com/turtacn/CaseLaw-Intelligence/internal/intelligence/record_normalizer"
	"github.com/turtacn/CaseLaw-Intelligence/internal/intelligence/section_extractor"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// DefaultWorkers bounds the per-document fan-out.
const DefaultWorkers = 8

// ErrNoInput is returned for an empty document or record collection.
var ErrNoInput = citation_graph.ErrNoInput

// RecordCache short-circuits documents that were normalized before.  Keys are
// content fingerprints of the raw document.  GetOrLoad calls load at most
// once per key across concurrent callers, caches a non-nil record and
// reports whether the record was already cached; load errors are returned
// unchanged and not cached.
type RecordCache interface {
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (*judgment.JudgmentRecord, error)) (*judgment.JudgmentRecord, bool, error)
}

// Config configures a Pipeline.
type Config struct {
	Workers    int
	Normalizer record_normalizer.Options
	Graph      citation_graph.Options
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithCache enables the record cache.
func WithCache(c RecordCache) Option { return func(p *Pipeline) { p.cache = c } }

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *prometheus.AppMetrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithClassifier replaces the rule-based outcome classifier.
func WithClassifier(c record_normalizer.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithExtractor replaces the default section extractor.
func WithExtractor(e *section_extractor.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	extractor  *section_extractor.Extractor
	classifier record_normalizer.Classifier
	normalizer *record_normalizer.Normalizer
	builder    *citation_graph.Builder
	cache      RecordCache
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
	cacheSalt  string
}

// New wires the stages.
func New(cfg Config, opts ...Option) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNopLogger()
	}
	p.logger = p.logger.Named("pipeline")
	if p.metrics == nil {
		p.metrics = prometheus.NewNopAppMetrics()
	}
	if p.extractor == nil {
		p.extractor = section_extractor.NewExtractor()
	}
	if p.classifier == nil {
		p.classifier = outcome_classifier.New()
	}
	p.normalizer = record_normalizer.NewNormalizer(cfg.Normalizer, p.classifier, p.logger)
	p.builder = citation_graph.NewBuilder(cfg.Graph, p.logger)
	// Cached records depend on the normalization options.
	p.cacheSalt = fmt.Sprintf("%d:%t", cfg.Normalizer.MaxTextLength, cfg.Normalizer.RequireAllSections)
	return p
}

// Rejected describes one dropped document.
type Rejected struct {
	Index      int                            `json:"index"`
	Identifier string                         `json:"identifier"`
	Reason     record_normalizer.RejectReason `json:"reason"`
	Detail     string                         `json:"detail"`
}

// Result is the outcome of a run.
type Result struct {
	RunID      string                                 `json:"run_id"`
	Documents  int                                    `json:"documents"`
	Records    []*judgment.JudgmentRecord             `json:"records"`
	Rejected   map[record_normalizer.RejectReason]int `json:"rejected"`
	Rejections []Rejected                             `json:"rejections"`
	CacheHits  int                                    `json:"cache_hits"`
	Graph      *citation.View                         `json:"graph,omitempty"`
	Duration   time.Duration                          `json:"duration"`
}

// RejectedTotal sums the rejection counts.
func (r *Result) RejectedTotal() int {
	n := 0
	for _, c := range r.Rejected {
		n += c
	}
	return n
}

type outcome struct {
	record    *judgment.JudgmentRecord
	rejection *record_normalizer.Rejection
	cached    bool
}

// Process extracts and normalizes docs.  Records come back sorted by
// identifier; documents sharing an identifier keep their input order.
func (p *Pipeline) Process(ctx context.Context, docs []judgment.RawDocument) (*Result, error) {
	if len(docs) == 0 {
		return nil, ErrNoInput
	}
	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.With(logging.String(logging.FieldRunID, runID))
	ctx = logging.WithRunID(ctx, runID)

	outcomes := make([]outcome, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processOne(gctx, log, docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		prometheus.RecordError(p.metrics, "pipeline", string(errors.ErrCodeTimeout))
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "document processing interrupted")
	}

	res := &Result{
		RunID:      runID,
		Documents:  len(docs),
		Records:    make([]*judgment.JudgmentRecord, 0, len(docs)),
		Rejected:   make(map[record_normalizer.RejectReason]int),
		Rejections: []Rejected{},
	}
	for i, o := range outcomes {
		switch {
		case o.rejection != nil:
			res.Rejected[o.rejection.Reason]++
			res.Rejections = append(res.Rejections, Rejected{
				Index:      i,
				Identifier: docs[i].Identifier,
				Reason:     o.rejection.Reason,
				Detail:     o.rejection.Detail,
			})
			prometheus.RecordRejection(p.metrics, string(o.rejection.Reason))
		case o.record != nil:
			res.Records = append(res.Records, o.record)
			if o.cached {
				res.CacheHits++
				prometheus.RecordDocument(p.metrics, prometheus.StatusCached)
			} else {
				prometheus.RecordDocument(p.metrics, prometheus.StatusAccepted)
			}
			p.metrics.OutcomesTotal.WithLabelValues(string(o.record.Outcome)).Inc()
		}
	}
	sort.SliceStable(res.Records, func(a, b int) bool {
		return res.Records[a].Identifier < res.Records[b].Identifier
	})

	res.Duration = time.Since(start)
	prometheus.RecordStage(p.metrics, prometheus.StageNormalize, res.Duration)
	log.Info("documents processed",
		logging.Int("documents", len(docs)),
		logging.Int(logging.FieldRecordCount, len(res.Records)),
		logging.Int("rejected", res.RejectedTotal()),
		logging.Int("cache_hits", res.CacheHits),
		logging.Int64(logging.FieldDurationMS, res.Duration.Milliseconds()))
	return res, nil
}

func (p *Pipeline) processOne(ctx context.Context, log logging.Logger, doc judgment.RawDocument) outcome {
	if p.cache == nil {
		return p.normalize(doc)
	}

	key := doc.ContentHash() + ":" + p.cacheSalt
	rec, hit, err := p.cache.GetOrLoad(ctx, key, func(context.Context) (*judgment.JudgmentRecord, error) {
		o := p.normalize(doc)
		if o.rejection != nil {
			return nil, o.rejection
		}
		return o.record, nil
	})
	prometheus.RecordCacheAccess(p.metrics, "records", hit)

	var rej *record_normalizer.Rejection
	switch {
	case errors.As(err, &rej):
		return outcome{rejection: rej}
	case err != nil:
		log.Warn("record cache failed, normalizing directly", logging.Err(err))
		return p.normalize(doc)
	}
	return outcome{record: rec, cached: hit}
}

func (p *Pipeline) normalize(doc judgment.RawDocument) outcome {
	fields := p.extractor.ExtractAll(doc.CaseDetails)
	for _, s := range fields.Missing() {
		p.metrics.SectionsMissing.WithLabelValues(string(s)).Inc()
	}
	rec, rej := p.normalizer.Normalize(doc, fields)
	if rej != nil {
		return outcome{rejection: rej}
	}
	return outcome{record: rec}
}

// BuildGraph builds the citation graph of records.
func (p *Pipeline) BuildGraph(ctx context.Context, records []*judgment.JudgmentRecord) (*citation.View, error) {
	timer := prometheus.NewTimer(p.metrics.StageDuration.WithLabelValues(prometheus.StageGraph))
	view, err := p.builder.Build(ctx, records)
	timer.ObserveDuration()
	if err != nil {
		prometheus.RecordError(p.metrics, "citation_graph", string(errors.GetCode(err)))
		return nil, err
	}
	prometheus.RecordGraph(p.metrics, "built", view.Stats.NodesBuilt, view.Stats.EdgesBuilt)
	prometheus.RecordGraph(p.metrics, "pruned", len(view.Nodes), len(view.Edges))
	p.metrics.LayoutIterations.WithLabelValues().Set(float64(view.Stats.LayoutIterations))
	return view, nil
}

// Run processes docs and builds the graph of the surviving records.
func (p *Pipeline) Run(ctx context.Context, docs []judgment.RawDocument) (*Result, error) {
	res, err := p.Process(ctx, docs)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if len(res.Records) == 0 {
		p.metrics.RunsTotal.WithLabelValues("failed").Inc()
		return res, errors.New(errors.ErrCodeNoInput, "every document was rejected").
			WithDetail(fmt.Sprintf("documents=%d", res.Documents))
	}
	view, err := p.BuildGraph(ctx, res.Records)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("failed").Inc()
		return res, err
	}
	view.RunID = res.RunID
	res.Graph = view
	p.metrics.RunsTotal.WithLabelValues("succeeded").Inc()
	return res, nil
}
