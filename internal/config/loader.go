package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "CASELAW"

// envBoundKeys lists every leaf key so that AutomaticEnv overrides also reach
// Unmarshal when no config file mentions the key.
var envBoundKeys = []string{
	"pipeline.workers", "pipeline.max_text_length", "pipeline.require_all_sections", "pipeline.cache_enabled",
	"graph.min_degree", "graph.cascade_pruning", "graph.keep_external_references",
	"graph.layout_iterations", "graph.layout_seed", "graph.layout_scale", "graph.layout_timeout",
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"server.rate_limit", "server.rate_limit_burst",
	"database.enabled", "database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns", "database.min_conns",
	"neo4j.enabled", "neo4j.uri", "neo4j.user", "neo4j.password", "neo4j.database",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.default_ttl", "redis.key_prefix",
	"kafka.brokers", "kafka.group_id", "kafka.raw_topic", "kafka.normalized_topic", "kafka.dead_letter_topic", "kafka.auto_offset_reset",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket", "minio.region", "minio.use_ssl", "minio.export_retention_days",
	"search.enabled", "search.addresses", "search.username", "search.password", "search.index", "search.insecure_skip_verify", "search.max_retries", "search.request_timeout", "search.bulk_batch_size",
	"metrics.enabled", "metrics.namespace",
	"log.level", "log.format",
}

// newViper builds a Viper instance with YAML file type, the CASELAW_ env
// prefix and a "." → "_" key replacer, so "graph.min_degree" resolves to
// CASELAW_GRAPH_MIN_DEGREE.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envBoundKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges CASELAW_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromFile is an alias of Load kept for CLI call sites.
func LoadFromFile(configPath string) (*Config, error) {
	return Load(configPath)
}

// LoadFromEnv builds a Config from CASELAW_* environment variables and
// defaults only.
//
//	CASELAW_<SECTION>_<FIELD>   e.g.  CASELAW_GRAPH_MIN_DEGREE, CASELAW_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch invokes onChange with the re-parsed Config whenever configPath
// changes on disk.  Invalid revisions are skipped.  Only hot-reloadable
// settings such as log.level should be applied by the callback.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad wraps Load and panics on error.  For use in main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
