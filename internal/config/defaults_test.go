package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultPipelineWorkers, cfg.Pipeline.Workers)
	assert.Equal(t, DefaultMaxTextLength, cfg.Pipeline.MaxTextLength)
	assert.False(t, cfg.Pipeline.RequireAllSections)
	assert.Equal(t, DefaultMinDegree, cfg.Graph.MinDegree)
	assert.False(t, cfg.Graph.CascadePruning)
	assert.False(t, cfg.Graph.KeepExternalReferences)
	assert.Equal(t, int64(DefaultLayoutSeed), cfg.Graph.LayoutSeed)
	assert.Equal(t, DefaultKafkaRawTopic, cfg.Kafka.RawTopic)
	assert.Equal(t, DefaultKafkaNormalizedTopic, cfg.Kafka.NormalizedTopic)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, []string{DefaultSearchAddress}, cfg.Search.Addresses)
	assert.Equal(t, DefaultSearchIndex, cfg.Search.Index)
	assert.Equal(t, 500, cfg.Search.BulkBatchSize)
	assert.False(t, cfg.Search.Enabled)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Graph.MinDegree = 1
	cfg.Graph.LayoutTimeout = time.Second
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Graph.MinDegree)
	assert.Equal(t, time.Second, cfg.Graph.LayoutTimeout)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
}
