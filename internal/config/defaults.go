package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultPipelineWorkers = 8
	DefaultMaxTextLength   = 1_000_000

	DefaultMinDegree        = 5
	DefaultLayoutIterations = 50
	DefaultLayoutSeed       = 42
	DefaultLayoutScale      = 1.0
	DefaultLayoutTimeout    = 30 * time.Second

	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "caselaw"
	DefaultDBName     = "caselaw"
	DefaultDBMaxConns = 10

	DefaultNeo4jURI = "bolt://localhost:7687"

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisTTL  = 24 * time.Hour

	DefaultKafkaBroker          = "localhost:9092"
	DefaultKafkaGroupID         = "caselaw-ingest"
	DefaultKafkaRawTopic        = "judgment.raw"
	DefaultKafkaNormalizedTopic = "judgment.normalized"
	DefaultKafkaDeadLetterTopic = "dead_letter.judgment"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "caselaw"

	DefaultSearchAddress = "http://localhost:9200"
	DefaultSearchIndex   = "judgments"

	DefaultMetricsNamespace = "caselaw"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// NewDefaultConfig returns a Config with every field set to its default.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Explicitly set fields are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = DefaultPipelineWorkers
	}
	if cfg.Pipeline.MaxTextLength == 0 {
		cfg.Pipeline.MaxTextLength = DefaultMaxTextLength
	}

	// ── Graph ─────────────────────────────────────────────────────────────────
	if cfg.Graph.MinDegree == 0 {
		cfg.Graph.MinDegree = DefaultMinDegree
	}
	if cfg.Graph.LayoutIterations == 0 {
		cfg.Graph.LayoutIterations = DefaultLayoutIterations
	}
	if cfg.Graph.LayoutSeed == 0 {
		cfg.Graph.LayoutSeed = DefaultLayoutSeed
	}
	if cfg.Graph.LayoutScale == 0 {
		cfg.Graph.LayoutScale = DefaultLayoutScale
	}
	if cfg.Graph.LayoutTimeout == 0 {
		cfg.Graph.LayoutTimeout = DefaultLayoutTimeout
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = int(cfg.Server.RateLimit * 2)
		if cfg.Server.RateLimitBurst < 1 {
			cfg.Server.RateLimitBurst = 1
		}
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = 50
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 30 * time.Second
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	// DB 0 is both the default and a valid explicit value; left as-is.
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "caselaw:"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RawTopic == "" {
		cfg.Kafka.RawTopic = DefaultKafkaRawTopic
	}
	if cfg.Kafka.NormalizedTopic == "" {
		cfg.Kafka.NormalizedTopic = DefaultKafkaNormalizedTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultKafkaDeadLetterTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Search ────────────────────────────────────────────────────────────────
	if len(cfg.Search.Addresses) == 0 {
		cfg.Search.Addresses = []string{DefaultSearchAddress}
	}
	if cfg.Search.Index == "" {
		cfg.Search.Index = DefaultSearchIndex
	}
	if cfg.Search.MaxRetries == 0 {
		cfg.Search.MaxRetries = 3
	}
	if cfg.Search.RequestTimeout == 0 {
		cfg.Search.RequestTimeout = 10 * time.Second
	}
	if cfg.Search.BulkBatchSize == 0 {
		cfg.Search.BulkBatchSize = 500
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
