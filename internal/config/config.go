// Package config defines all configuration structures for the
// CaseLaw-Intelligence platform.  No I/O or parsing logic lives here, only
// plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// PipelineConfig holds the ingestion pipeline tunables.
type PipelineConfig struct {
	Workers            int  `mapstructure:"workers"`
	MaxTextLength      int  `mapstructure:"max_text_length"`
	RequireAllSections bool `mapstructure:"require_all_sections"`
	CacheEnabled       bool `mapstructure:"cache_enabled"`
}

// GraphConfig holds citation graph construction and layout parameters.
// A MinDegree of 1 disables pruning; 0 means "use the default".
type GraphConfig struct {
	MinDegree              int           `mapstructure:"min_degree"`
	CascadePruning         bool          `mapstructure:"cascade_pruning"`
	KeepExternalReferences bool          `mapstructure:"keep_external_references"`
	LayoutIterations       int           `mapstructure:"layout_iterations"`
	LayoutSeed             int64         `mapstructure:"layout_seed"`
	LayoutScale            float64       `mapstructure:"layout_scale"`
	LayoutTimeout          time.Duration `mapstructure:"layout_timeout"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per client; 0 disables
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Neo4jConfig holds citation graph store connection parameters.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	RawTopic        string   `mapstructure:"raw_topic"`
	NormalizedTopic string   `mapstructure:"normalized_topic"`
	DeadLetterTopic string   `mapstructure:"dead_letter_topic"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	BatchSize       int      `mapstructure:"batch_size"`
	MaxRetries      int      `mapstructure:"max_retries"`
}

// SearchConfig holds the OpenSearch full-text index parameters.
type SearchConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Addresses          []string      `mapstructure:"addresses"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	Index              string        `mapstructure:"index"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	BulkBatchSize      int           `mapstructure:"bulk_batch_size"`
}

// MinIOConfig holds S3-compatible object storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	// ExportRetentionDays expires run exports after this many days; 0 keeps
	// them forever.
	ExportRetentionDays int `mapstructure:"export_retention_days"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	Namespace              string `mapstructure:"namespace"`
	Subsystem              string `mapstructure:"subsystem"`
	EnableProcessMetrics   bool   `mapstructure:"enable_process_metrics"`
	EnableGoRuntimeMetrics bool   `mapstructure:"enable_go_runtime_metrics"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Search   SearchConfig   `mapstructure:"search"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	// Pipeline
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("config: pipeline.workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MaxTextLength < 1 {
		return fmt.Errorf("config: pipeline.max_text_length must be >= 1, got %d", c.Pipeline.MaxTextLength)
	}

	// Graph
	if c.Graph.MinDegree < 0 {
		return fmt.Errorf("config: graph.min_degree must be >= 0, got %d", c.Graph.MinDegree)
	}
	if c.Graph.LayoutIterations < 1 {
		return fmt.Errorf("config: graph.layout_iterations must be >= 1, got %d", c.Graph.LayoutIterations)
	}
	if c.Graph.LayoutScale <= 0 {
		return fmt.Errorf("config: graph.layout_scale must be > 0, got %g", c.Graph.LayoutScale)
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must be >= 0, got %g", c.Server.RateLimit)
	}

	// Database
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
	}

	// Neo4j
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return fmt.Errorf("config: kafka.auto_offset_reset %q is invalid; expected earliest|latest", c.Kafka.AutoOffsetReset)
	}

	// Search
	if c.Search.Enabled {
		if len(c.Search.Addresses) == 0 {
			return fmt.Errorf("config: search.addresses is required")
		}
		if c.Search.BulkBatchSize < 1 {
			return fmt.Errorf("config: search.bulk_batch_size must be >= 1, got %d", c.Search.BulkBatchSize)
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string for the database section.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}
