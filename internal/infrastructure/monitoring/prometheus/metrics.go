package prometheus

import (
	"strconv"
	"time"
)

// Stage names used for the stage duration histogram.
const (
	StageExtract   = "extract"
	StageNormalize = "normalize"
	StageGraph     = "graph"
	StageLayout    = "layout"
	StageExport    = "export"
)

// Document status values.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusCached   = "cached"
)

// AppMetrics holds every metric the binaries export.
type AppMetrics struct {
	// Pipeline
	DocumentsTotal   CounterVec
	RejectionsTotal  CounterVec
	OutcomesTotal    CounterVec
	SectionsMissing  CounterVec
	StageDuration    HistogramVec
	RunsTotal        CounterVec
	GraphNodes       GaugeVec
	GraphEdges       GaugeVec
	LayoutIterations GaugeVec

	// Infrastructure
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	DBQueryDuration  HistogramVec
	MessagesTotal    CounterVec
	ErrorsTotal      CounterVec

	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

var (
	DefaultStageDurationBuckets = []float64{.001, .01, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDBDurationBuckets    = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.DocumentsTotal = collector.RegisterCounter("documents_total", "Raw documents processed", "status")
	m.RejectionsTotal = collector.RegisterCounter("rejections_total", "Documents rejected during normalization", "reason")
	m.OutcomesTotal = collector.RegisterCounter("outcomes_total", "Judgments per outcome label", "outcome")
	m.SectionsMissing = collector.RegisterCounter("sections_missing_total", "Sections whose anchors were not found", "section")
	m.StageDuration = collector.RegisterHistogram("stage_duration_seconds", "Pipeline stage duration", DefaultStageDurationBuckets, "stage")
	m.RunsTotal = collector.RegisterCounter("runs_total", "Pipeline runs", "status")
	m.GraphNodes = collector.RegisterGauge("graph_nodes", "Citation graph nodes", "phase")
	m.GraphEdges = collector.RegisterGauge("graph_edges", "Citation graph edges", "phase")
	m.LayoutIterations = collector.RegisterGauge("layout_iterations", "Iterations run by the last layout")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.MessagesTotal = collector.RegisterCounter("messages_total", "Broker messages handled", "topic", "status")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	return m
}

// NewNopAppMetrics returns metrics bound to a nop collector.
func NewNopAppMetrics() *AppMetrics { return NewAppMetrics(NewNopCollector()) }

// RecordDocument counts one processed document.
func RecordDocument(m *AppMetrics, status string) {
	m.DocumentsTotal.WithLabelValues(status).Inc()
}

// RecordRejection counts one rejected document.
func RecordRejection(m *AppMetrics, reason string) {
	m.DocumentsTotal.WithLabelValues(StatusRejected).Inc()
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordStage observes a stage duration.
func RecordStage(m *AppMetrics, stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordGraph sets the graph size gauges for phase ("built" or "pruned").
func RecordGraph(m *AppMetrics, phase string, nodes, edges int) {
	m.GraphNodes.WithLabelValues(phase).Set(float64(nodes))
	m.GraphEdges.WithLabelValues(phase).Set(float64(edges))
}

// RecordCacheAccess counts a hit or a miss.
func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordDBQuery observes a query and counts it as an error when err is set.
func RecordDBQuery(m *AppMetrics, db, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(db, operation).Observe(d.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues(db, "query_error").Inc()
	}
}

// RecordHTTPRequest counts and times one request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordError counts an error under its component and code.
func RecordError(m *AppMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
