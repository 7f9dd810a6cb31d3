// Command apiserver serves stored judgment records and citation graphs over
// HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CaseLaw-Intelligence/internal/config"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/cli"
	httpserver "github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/middleware"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	cfg, fromFile, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	dynLevel := logging.NewDynamicLevel(level)
	logger, err := logging.NewLogger(logging.LogConfig{
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Dynamic:     dynLevel,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	if fromFile {
		config.Watch(*configPath, func(c *config.Config) {
			if l, err := logging.ParseLevel(c.Log.Level); err == nil && l != dynLevel.Level() {
				dynLevel.Set(l)
				logger.Info("Log level changed", logging.String("level", l.String()))
			}
		})
	}

	logger.Info("Starting CaseLaw-Intelligence API server",
		logging.String("version", cli.Version),
		logging.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	routerCfg, cleanup, err := buildRouterConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(cfg.Server.Mode)
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}

// loadConfig reads path when it exists and falls back to the environment.
func loadConfig(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := config.LoadFromFile(path)
		return cfg, true, err
	}
	cfg, err := config.LoadFromEnv()
	return cfg, false, err
}

// buildRouterConfig opens the enabled stores.  A disabled store leaves its
// routes unregistered, or for the graph, answered from exports only.
func buildRouterConfig(ctx context.Context, cfg *config.Config, logger logging.Logger) (httpserver.RouterConfig, func(), error) {
	var (
		closers  []func()
		checkers []handlers.HealthChecker
		rc       = httpserver.RouterConfig{Logger: logger, AllowedOrigins: cfg.Server.AllowedOrigins}
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (httpserver.RouterConfig, func(), error) {
		cleanup()
		return httpserver.RouterConfig{}, func() {}, err
	}

	rc.Metrics = prometheus.NewNopAppMetrics()
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
			EnableGoMetrics:      cfg.Metrics.EnableGoRuntimeMetrics,
		}, logger)
		if err != nil {
			return fail(err)
		}
		rc.MetricsCollector = collector
		rc.Metrics = prometheus.NewAppMetrics(collector)
	}

	if cfg.Database.Enabled {
		pool, err := postgres.NewConnectionPool(cfg.Database, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { postgres.Close(pool) })
		if err := postgres.HealthCheck(ctx, pool, logger); err != nil {
			logger.Warn("PostgreSQL is not reachable yet; /readyz reports it", logging.Err(err))
		}
		rc.RecordHandler = handlers.NewRecordHandler(pgrepo.NewJudgmentRepository(pool, logger), logger)
		checkers = append(checkers, &postgresHealthAdapter{pool: pool, log: logger})
	}

	if cfg.Search.Enabled && rc.RecordHandler != nil {
		client, err := opensearch.NewClient(cfg.Search, logger)
		if err != nil {
			logger.Warn("OpenSearch unavailable, record search answers 503", logging.Err(err))
		} else {
			idx := opensearch.NewRecordIndex(client, logger)
			if _, err := idx.EnsureIndex(ctx); err != nil {
				return fail(err)
			}
			rc.RecordHandler.WithSearch(idx)
			checkers = append(checkers, &searchHealthAdapter{client: client})
		}
	}

	var graphStore *neo4jrepo.CitationGraphRepository
	if cfg.Neo4j.Enabled {
		driver, err := neo4j.NewDriver(cfg.Neo4j, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = driver.Close(closeCtx)
		})
		graphStore = neo4jrepo.NewCitationGraphRepository(driver, logger)
		checkers = append(checkers, &neo4jHealthAdapter{driver: driver})
	}

	var exports *minio.ArtifactStore
	if cfg.MinIO.Endpoint != "" {
		client, err := minio.NewClient(cfg.MinIO, logger)
		if err != nil {
			return fail(err)
		}
		exports = minio.NewArtifactStore(client, logger)
		checkers = append(checkers, &minioHealthAdapter{client: client})
	}

	switch {
	case graphStore != nil && exports != nil:
		rc.GraphHandler = handlers.NewGraphHandler(graphStore, exports, logger)
	case graphStore != nil:
		rc.GraphHandler = handlers.NewGraphHandler(graphStore, nil, logger)
	case exports != nil:
		rc.GraphHandler = handlers.NewGraphHandler(nil, exports, logger)
	}

	if cfg.Server.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimit
		rl.BurstSize = cfg.Server.RateLimitBurst
		rc.RateLimit = rl
		rc.RateLimiter = middleware.NewClientLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.IdleTTL)
	}

	rc.HealthHandler = handlers.NewHealthHandler(cli.Version, checkers...)
	return rc, cleanup, nil
}
