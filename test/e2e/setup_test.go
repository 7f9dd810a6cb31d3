// Package e2e_test drives the whole read path in one process: raw documents
// go through the pipeline into in-memory stores, the HTTP server serves them
// and the Go client reads them back.
package e2e_test

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/citation_graph"
	"github.com/turtacn/CaseLaw-Intelligence/internal/application/pipeline"
	"github.com/turtacn/CaseLaw-Intelligence/internal/config"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/CaseLaw-Intelligence/internal/testutil"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/client"
)

// testEnv holds the stack shared by every test in the package.
type testEnv struct {
	baseURL string
	sdk     *client.Client
	run     *pipeline.Result
	records *testutil.MemoryJudgmentRepository
	graphs  *testutil.MemoryGraphRepository
	search  *testutil.MemorySearchIndex
	exports *memoryExports
	server  *httpapi.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	env, err = setupTestEnv(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "E2E test setup failed: %v\n", err)
		os.Exit(1)
	}
	exitCode := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := env.server.Stop(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "E2E server shutdown failed: %v\n", err)
	}
	cancel()
	os.Exit(exitCode)
}

func setupTestEnv(ctx context.Context) (*testEnv, error) {
	log := logging.NewNopLogger()
	p := pipeline.New(pipeline.Config{
		Workers: 4,
		Graph:   citation_graph.Options{MinDegree: 1, Iterations: 50, Seed: 7},
	}, pipeline.WithLogger(log))

	run, err := p.Run(ctx, corpus())
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	e := &testEnv{
		run:     run,
		records: testutil.NewMemoryJudgmentRepository(),
		graphs:  &testutil.MemoryGraphRepository{},
		search:  testutil.NewMemorySearchIndex(),
		exports: &memoryExports{objects: map[string][]byte{}},
	}
	if err := e.records.SaveBatch(ctx, run.Records); err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}
	if err := e.search.IndexRecords(ctx, run.Records); err != nil {
		return nil, fmt.Errorf("index records: %w", err)
	}
	if err := e.graphs.SaveView(ctx, run.Graph); err != nil {
		return nil, fmt.Errorf("store graph: %w", err)
	}
	var graphJSON bytes.Buffer
	if err := pipeline.WriteGraphJSON(&graphJSON, run.Graph); err != nil {
		return nil, fmt.Errorf("export graph: %w", err)
	}
	e.exports.put(run.RunID, "graph.json", graphJSON.Bytes())

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "caselaw"}, log)
	if err != nil {
		return nil, fmt.Errorf("metrics collector: %w", err)
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		RecordHandler:    handlers.NewRecordHandler(e.records, log).WithSearch(e.search),
		GraphHandler:     handlers.NewGraphHandler(e.graphs, e.exports, log),
		HealthHandler:    handlers.NewHealthHandler("e2e"),
		AllowedOrigins:   []string{"https://viewer.example.org"},
		RateLimiter:      middleware.NewClientLimiter(1000, 1000, time.Minute),
		RateLimit:        middleware.DefaultRateLimitConfig(),
		Logger:           log,
		MetricsCollector: collector,
		Metrics:          prometheus.NewAppMetrics(collector),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	e.server = httpapi.NewServer(config.ServerConfig{
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, router, log)
	go func() {
		if err := e.server.Serve(ln); err != nil {
			fmt.Fprintf(os.Stderr, "E2E server stopped: %v\n", err)
		}
	}()
	e.baseURL = "http://" + ln.Addr().String()

	e.sdk, err = client.NewClient(e.baseURL, client.WithRetryMax(1),
		client.WithRetryWait(10*time.Millisecond, 20*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	if err := waitForHealthy(ctx, e.baseURL, 5*time.Second); err != nil {
		return nil, err
	}
	return e, nil
}
