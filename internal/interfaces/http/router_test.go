package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/citation"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/CaseLaw-Intelligence/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, prometheus.MetricsCollector) {
	t.Helper()
	repo := testutil.NewMemoryJudgmentRepository()
	for _, in := range []judgment.RecordInput{
		{Identifier: "100/01", RespondentState: "Utopia", Outcome: judgment.OutcomeViolation},
		{Identifier: "200/02", RespondentState: "Utopia", Outcome: judgment.OutcomeNoViolation},
		{Identifier: "300/03", RespondentState: "Ruritania", Outcome: judgment.OutcomeViolation},
	} {
		rec, err := judgment.NewJudgmentRecord(in)
		require.NoError(t, err)
		require.NoError(t, repo.SaveBatch(context.Background(), []*judgment.JudgmentRecord{rec}))
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "caselaw"}, logging.NewNopLogger())
	require.NoError(t, err)

	graphs := &testutil.MemoryGraphRepository{}
	require.NoError(t, graphs.SaveView(context.Background(), &citation.View{
		RunID: "run-1", Nodes: []citation.NodeView{}, Edges: []citation.EdgeView{},
	}))

	log := logging.NewNopLogger()
	r := NewRouter(RouterConfig{
		RecordHandler:    handlers.NewRecordHandler(repo, log),
		GraphHandler:     handlers.NewGraphHandler(graphs, nil, log),
		HealthHandler:    handlers.NewHealthHandler("test"),
		Logger:           log,
		MetricsCollector: collector,
		Metrics:          prometheus.NewAppMetrics(collector),
	})
	return r, collector
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNewRouter_Routes(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		target string
		status int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/records", http.StatusOK},
		{"/api/v1/records/lookup?id=300/03", http.StatusOK},
		{"/api/v1/records/lookup?id=400/04", http.StatusNotFound},
		{"/api/v1/records/search?q=x", http.StatusServiceUnavailable},
		{"/api/v1/graph", http.StatusOK},
		{"/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := get(r, tt.target)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestNewRouter_RecordsFilter(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(r, "/api/v1/records?respondent_state=Utopia&outcome=violation")
	require.Equal(t, http.StatusOK, w.Code)

	var page handlers.RecordPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "100/01", page.Records[0].Identifier)
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
}

func TestNewRouter_UnknownRouteEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)
	w := get(r, "/nowhere")
	assert.JSONEq(t, `{"error":{"code":"COMMON_005","message":"resource not found"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/records", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewRouter_MetricsCountRequests(t *testing.T) {
	r, _ := newTestRouter(t)
	get(r, "/api/v1/records?year=2003")
	get(r, "/api/v1/records")

	w := get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body),
		`caselaw_http_requests_total{method="GET",path="/api/v1/records",status_code="200"} 2`)
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := get(r, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_001")
}

func TestNewRouter_NilHandlersNoPanic(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/records").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/metrics").Code)
}

func TestNewRouter_RateLimited(t *testing.T) {
	r := NewRouter(RouterConfig{
		HealthHandler: handlers.NewHealthHandler("test"),
		RateLimiter:   middleware.NewClientLimiter(0.001, 1, 0),
		RateLimit:     middleware.DefaultRateLimitConfig(),
	})
	r.GET("/api/v1/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/ping").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/v1/ping").Code)
	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
}
