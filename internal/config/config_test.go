package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Caches.BaseTTL)
	assert.Equal(t, string(types.StrategyRecency), cfg.Caches.Strategy)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 4, cfg.Warmer.Concurrency)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestConfiguration_LoadFromFile(t *testing.T) {
	content := `
caches:
  base_ttl: 10m
  metadata_size: 1000
  paths_size: 2000
  strategy: adaptive
  evaluation_interval: 2m
  hierarchical: true
  fast_tier_size: 50
metrics:
  enabled: true
  port: 9090
warmer:
  concurrency: 8
  s3:
    bucket: warm-data
    region: us-west-2
    key_prefix: cache/
logging:
  level: DEBUG
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := NewDefault()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 10*time.Minute, cfg.Caches.BaseTTL)
	assert.Equal(t, 1000, cfg.Caches.MetadataSize)
	assert.Equal(t, 2000, cfg.Caches.PathsSize)
	assert.Equal(t, 128, cfg.Caches.ArtifactsSize, "omitted fields keep defaults")
	assert.Equal(t, "adaptive", cfg.Caches.Strategy)
	assert.Equal(t, 2*time.Minute, cfg.Caches.EvaluationInterval)
	assert.True(t, cfg.Caches.Hierarchical)
	assert.Equal(t, 50, cfg.Caches.FastTierSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, 8, cfg.Warmer.Concurrency)
	assert.Equal(t, "warm-data", cfg.Warmer.S3.Bucket)
	assert.Equal(t, "cache/", cfg.Warmer.S3.KeyPrefix)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestConfiguration_LoadFromFileErrors(t *testing.T) {
	cfg := NewDefault()

	err := cfg.LoadFromFile("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigLoad))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("caches: [not a map"), 0600))
	err = cfg.LoadFromFile(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigLoad))
}

func TestConfiguration_LoadFromEnv(t *testing.T) {
	t.Setenv("TIERCACHE_BASE_TTL", "15m")
	t.Setenv("TIERCACHE_STRATEGY", "FREQUENCY")
	t.Setenv("TIERCACHE_HIERARCHICAL", "true")
	t.Setenv("TIERCACHE_FAST_TIER_SIZE", "25")
	t.Setenv("TIERCACHE_METRICS_ENABLED", "true")
	t.Setenv("TIERCACHE_METRICS_PORT", "9100")
	t.Setenv("TIERCACHE_WARMER_CONCURRENCY", "16")
	t.Setenv("TIERCACHE_LOG_LEVEL", "warn")

	cfg := NewDefault()
	cfg.LoadFromEnv()

	assert.Equal(t, 15*time.Minute, cfg.Caches.BaseTTL)
	assert.Equal(t, "frequency", cfg.Caches.Strategy)
	assert.True(t, cfg.Caches.Hierarchical)
	assert.Equal(t, 25, cfg.Caches.FastTierSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.Equal(t, 16, cfg.Warmer.Concurrency)
	assert.Equal(t, "WARN", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestConfiguration_LoadFromEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("TIERCACHE_BASE_TTL", "soon")
	t.Setenv("TIERCACHE_METRICS_PORT", "not-a-port")

	cfg := NewDefault()
	cfg.LoadFromEnv()

	assert.Equal(t, 5*time.Minute, cfg.Caches.BaseTTL)
	assert.Equal(t, 8080, cfg.Metrics.Port)
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{
			name:   "zero base TTL",
			mutate: func(c *Configuration) { c.Caches.BaseTTL = 0 },
		},
		{
			name:   "zero metadata size",
			mutate: func(c *Configuration) { c.Caches.MetadataSize = 0 },
		},
		{
			name:   "negative paths size",
			mutate: func(c *Configuration) { c.Caches.PathsSize = -1 },
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Configuration) { c.Caches.Strategy = "random" },
		},
		{
			name:   "negative fast tier size",
			mutate: func(c *Configuration) { c.Caches.FastTierSize = -1 },
		},
		{
			name: "metrics port out of range",
			mutate: func(c *Configuration) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
		},
		{
			name:   "zero warmer concurrency",
			mutate: func(c *Configuration) { c.Warmer.Concurrency = 0 },
		},
		{
			name:   "bad log level",
			mutate: func(c *Configuration) { c.Logging.Level = "VERBOSE" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
		})
	}
}

func TestConfiguration_ValidateIgnoresPortWhenDisabled(t *testing.T) {
	cfg := NewDefault()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0

	assert.NoError(t, cfg.Validate())
}

func TestConfiguration_ManagerOptions(t *testing.T) {
	cfg := NewDefault()
	cfg.Caches.BaseTTL = 10 * time.Minute
	cfg.Caches.ModulesSize = 32

	opts := cfg.ManagerOptions()

	assert.Equal(t, 10*time.Minute, opts.BaseTTL)
	assert.Equal(t, 256, opts.Sizes[types.CacheMetadata])
	assert.Equal(t, 32, opts.Sizes[types.CacheModules])
}

func TestConfiguration_AdvancedManagerOptions(t *testing.T) {
	cfg := NewDefault()
	cfg.Caches.Strategy = string(types.StrategyAdaptive)
	cfg.Caches.EvaluationInterval = time.Minute
	cfg.Caches.Hierarchical = true
	cfg.Caches.FastTierSize = 40

	opts := cfg.AdvancedManagerOptions()

	assert.Equal(t, types.StrategyAdaptive, opts.Strategy)
	assert.Equal(t, time.Minute, opts.EvaluationInterval)
	assert.True(t, opts.EnableHierarchical)
	assert.Equal(t, 40, opts.FastTierSize)
}

func TestConfiguration_SaveLoadRoundTrip(t *testing.T) {
	cfg := NewDefault()
	cfg.Caches.BaseTTL = 7 * time.Minute
	cfg.Caches.Strategy = string(types.StrategyFrequency)
	cfg.Metrics.Namespace = "custom"
	cfg.Warmer.S3.Bucket = "warm-data"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded := NewDefault()
	require.NoError(t, loaded.LoadFromFile(path))

	assert.Equal(t, cfg, loaded)
}
