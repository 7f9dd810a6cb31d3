package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/application/citation_graph"
	"github.com/turtacn/CaseLaw-Intelligence/internal/application/pipeline"
	"github.com/turtacn/CaseLaw-Intelligence/internal/config"
	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres/repositories"
	rediscache "github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/CaseLaw-Intelligence/internal/intelligence/record_normalizer"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// runLockName guards exports and stores against concurrent runs.  The lock
// is a short lease kept alive for as long as the run lasts, so a crashed run
// frees it within runLockTTL.
const (
	runLockName = "pipeline-run"
	runLockTTL  = time.Minute
)

// PipelineConfig maps the configuration sections onto the pipeline stages.
func PipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		Workers: cfg.Pipeline.Workers,
		Normalizer: record_normalizer.Options{
			MaxTextLength:      cfg.Pipeline.MaxTextLength,
			RequireAllSections: cfg.Pipeline.RequireAllSections,
		},
		Graph: citation_graph.Options{
			MinDegree:              cfg.Graph.MinDegree,
			CascadePruning:         cfg.Graph.CascadePruning,
			KeepExternalReferences: cfg.Graph.KeepExternalReferences,
			Iterations:             cfg.Graph.LayoutIterations,
			Seed:                   cfg.Graph.LayoutSeed,
			Scale:                  cfg.Graph.LayoutScale,
			Timeout:                cfg.Graph.LayoutTimeout,
		},
	}
}

// RedisConfig maps the redis section onto the client settings.
func RedisConfig(c config.RedisConfig) rediscache.Config {
	return rediscache.Config{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// backends holds the optional stores a command opened.  Every store is nil
// when its section is disabled.
type backends struct {
	cfg     *config.Config
	log     logging.Logger
	metrics *prometheus.AppMetrics

	redis   *rediscache.Client
	pool    *pgxpool.Pool
	graphDB *neo4j.Driver
	objects *minio.ArtifactStore
	index   *opensearch.RecordIndex
	closers []func()
}

func newBackends(cliCtx *CLIContext) *backends {
	return &backends{
		cfg:     cliCtx.Config,
		log:     cliCtx.Logger,
		metrics: prometheus.NewNopAppMetrics(),
	}
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// openRedis connects when redis is enabled.  A connection failure only
// disables the cache and the run lock.
func (b *backends) openRedis() *rediscache.Client {
	if b.redis != nil || !b.cfg.Redis.Enabled {
		return b.redis
	}
	c, err := rediscache.NewClient(RedisConfig(b.cfg.Redis), b.log)
	if err != nil {
		b.log.Warn("Redis unavailable, continuing without cache and run lock", logging.Err(err))
		return nil
	}
	b.redis = c
	b.closers = append(b.closers, func() { _ = c.Close() })
	return c
}

// pipeline builds a pipeline with the record cache when enabled.
func (b *backends) pipeline() *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithLogger(b.log),
		pipeline.WithMetrics(b.metrics),
	}
	if b.cfg.Pipeline.CacheEnabled {
		if rc := b.recordCache(); rc != nil {
			opts = append(opts, pipeline.WithCache(rc))
		}
	}
	return pipeline.New(PipelineConfig(b.cfg), opts...)
}

// recordCache is nil when redis is disabled or unreachable.
func (b *backends) recordCache() *rediscache.RecordCache {
	c := b.openRedis()
	if c == nil {
		return nil
	}
	return rediscache.NewRecordCache(c, b.log,
		rediscache.WithPrefix(b.cfg.Redis.KeyPrefix+"record:"),
		rediscache.WithDefaultTTL(b.cfg.Redis.DefaultTTL),
	)
}

// lockRun takes the run lock when redis is reachable.  The returned release
// func is always non-nil.
func (b *backends) lockRun(ctx context.Context) (func(), error) {
	c := b.openRedis()
	if c == nil {
		return func() {}, nil
	}
	m := rediscache.NewMutex(c, runLockName, runLockTTL, b.log)
	if err := m.TryLock(ctx); err != nil {
		return nil, err
	}
	stop := m.KeepAlive(ctx)
	return func() {
		stop()
		if err := m.Unlock(context.Background()); err != nil {
			b.log.Warn("Failed to release run lock", logging.Err(err))
		}
	}, nil
}

func (b *backends) openPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	if !b.cfg.Database.Enabled {
		return nil, errors.New(errors.ErrCodeValidation, "database is disabled; set database.enabled")
	}
	pool, err := postgres.NewConnectionPool(b.cfg.Database, b.log)
	if err != nil {
		return nil, err
	}
	if err := postgres.HealthCheck(ctx, pool, b.log); err != nil {
		postgres.Close(pool)
		return nil, err
	}
	b.pool = pool
	b.closers = append(b.closers, func() { postgres.Close(pool) })
	return pool, nil
}

func (b *backends) judgments(ctx context.Context) (judgment.Repository, error) {
	pool, err := b.openPostgres(ctx)
	if err != nil {
		return nil, err
	}
	return pgrepo.NewJudgmentRepository(pool, b.log), nil
}

func (b *backends) runs(ctx context.Context) (*pgrepo.RunRepository, error) {
	pool, err := b.openPostgres(ctx)
	if err != nil {
		return nil, err
	}
	return pgrepo.NewRunRepository(pool, b.log), nil
}

func (b *backends) graphs() (*neo4jrepo.CitationGraphRepository, error) {
	if b.graphDB == nil {
		if !b.cfg.Neo4j.Enabled {
			return nil, errors.New(errors.ErrCodeValidation, "graph store is disabled; set neo4j.enabled")
		}
		d, err := neo4j.NewDriver(b.cfg.Neo4j, b.log)
		if err != nil {
			return nil, err
		}
		b.graphDB = d
		b.closers = append(b.closers, func() { _ = d.Close(context.Background()) })
	}
	return neo4jrepo.NewCitationGraphRepository(b.graphDB, b.log), nil
}

func (b *backends) artifacts() (*minio.ArtifactStore, error) {
	if b.objects != nil {
		return b.objects, nil
	}
	if b.cfg.MinIO.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "object storage is not configured; set minio.endpoint")
	}
	c, err := minio.NewClient(b.cfg.MinIO, b.log)
	if err != nil {
		return nil, err
	}
	b.objects = minio.NewArtifactStore(c, b.log)
	return b.objects, nil
}

// searchIndex connects to OpenSearch and creates the record index when it
// is missing.
func (b *backends) searchIndex(ctx context.Context) (*opensearch.RecordIndex, error) {
	if b.index != nil {
		return b.index, nil
	}
	if !b.cfg.Search.Enabled {
		return nil, errors.New(errors.ErrCodeValidation, "search index is disabled; set search.enabled")
	}
	c, err := opensearch.NewClient(b.cfg.Search, b.log)
	if err != nil {
		return nil, err
	}
	idx := opensearch.NewRecordIndex(c, b.log)
	if _, err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	b.index = idx
	return idx, nil
}

// loadDocuments reads raw documents from --input ("-" is stdin) or from a
// stored --batch.
func (b *backends) loadDocuments(ctx context.Context, cmd *cobra.Command, input, batch string) ([]judgment.RawDocument, error) {
	switch {
	case input != "" && batch != "":
		return nil, errors.New(errors.ErrCodeValidation, "--input and --batch are mutually exclusive")
	case input != "":
		return readDocumentsFile(cmd.InOrStdin(), input)
	case batch != "":
		store, err := b.artifacts()
		if err != nil {
			return nil, err
		}
		return store.LoadDocuments(ctx, batch)
	}
	return nil, errors.New(errors.ErrCodeValidation, "one of --input or --batch is required")
}

func readDocumentsFile(stdin io.Reader, path string) ([]judgment.RawDocument, error) {
	if path == "-" {
		return pipeline.ReadDocuments(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, fmt.Sprintf("failed to open %s", path))
	}
	defer f.Close()
	return pipeline.ReadDocuments(f)
}

func readRecordsFile(path string) ([]*judgment.JudgmentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, fmt.Sprintf("failed to open %s", path))
	}
	defer f.Close()
	return pipeline.ReadRecords(f)
}

// writeFile creates path and streams write into it.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, fmt.Sprintf("failed to create %s", path))
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExportFailed, fmt.Sprintf("failed to close %s", path))
	}
	return nil
}
