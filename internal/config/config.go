// Package config loads and validates the engine configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/tiercache/tiercache/internal/manager"
	"github.com/tiercache/tiercache/internal/warmer"
	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

// Configuration represents the complete engine configuration.
type Configuration struct {
	Caches  CachesConfig  `yaml:"caches"`
	Metrics MetricsConfig `yaml:"metrics"`
	Warmer  WarmerConfig  `yaml:"warmer"`
	Logging LoggingConfig `yaml:"logging"`
}

// CachesConfig configures the named caches and their shared policy.
type CachesConfig struct {
	// BaseTTL is the shared base TTL; each cache uses a fixed multiple.
	BaseTTL time.Duration `yaml:"base_ttl"`
	// Sizes are per-cache entry bounds.
	MetadataSize  int `yaml:"metadata_size"`
	PathsSize     int `yaml:"paths_size"`
	ArtifactsSize int `yaml:"artifacts_size"`
	ModulesSize   int `yaml:"modules_size"`
	// Strategy selects the eviction strategy for the advanced manager.
	Strategy string `yaml:"strategy"`
	// EvaluationInterval tunes adaptive strategy evaluation.
	EvaluationInterval time.Duration `yaml:"evaluation_interval"`
	// Hierarchical enables the two-tier paths cache.
	Hierarchical bool `yaml:"hierarchical"`
	FastTierSize int  `yaml:"fast_tier_size"`
	// JanitorInterval enables the background expired-entry sweeper when
	// positive.
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Port      int           `yaml:"port"`
	Path      string        `yaml:"path"`
	Namespace string        `yaml:"namespace"`
	Interval  time.Duration `yaml:"interval"`
}

// WarmerConfig configures bulk pre-population.
type WarmerConfig struct {
	Concurrency int                `yaml:"concurrency"`
	Retry       warmer.RetryConfig `yaml:"retry"`
	S3          warmer.S3Config    `yaml:"s3"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Caches: CachesConfig{
			BaseTTL:         manager.DefaultBaseTTL,
			MetadataSize:    256,
			PathsSize:       512,
			ArtifactsSize:   128,
			ModulesSize:     64,
			Strategy:        string(types.StrategyRecency),
			Hierarchical:    false,
			JanitorInterval: 0,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Port:      8080,
			Path:      "/metrics",
			Namespace: "tiercache",
			Interval:  30 * time.Second,
		},
		Warmer: WarmerConfig{
			Concurrency: 4,
			Retry:       warmer.DefaultRetryConfig(),
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the receiver.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoad, "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.ErrCodeConfigLoad, "failed to parse config file", err)
	}
	return nil
}

// LoadFromEnv applies TIERCACHE_* environment overrides.
func (c *Configuration) LoadFromEnv() {
	if val := os.Getenv("TIERCACHE_BASE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Caches.BaseTTL = d
		}
	}
	if val := os.Getenv("TIERCACHE_STRATEGY"); val != "" {
		c.Caches.Strategy = strings.ToLower(val)
	}
	if val := os.Getenv("TIERCACHE_HIERARCHICAL"); val != "" {
		c.Caches.Hierarchical = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("TIERCACHE_FAST_TIER_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Caches.FastTierSize = n
		}
	}
	if val := os.Getenv("TIERCACHE_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("TIERCACHE_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Metrics.Port = port
		}
	}
	if val := os.Getenv("TIERCACHE_WARMER_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Warmer.Concurrency = n
		}
	}
	if val := os.Getenv("TIERCACHE_LOG_LEVEL"); val != "" {
		c.Logging.Level = strings.ToUpper(val)
	}
}

// Validate fails fast on configuration the managers would reject.
func (c *Configuration) Validate() error {
	if c.Caches.BaseTTL <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "base_ttl must be positive, got %v", c.Caches.BaseTTL)
	}
	for name, size := range map[string]int{
		"metadata_size":  c.Caches.MetadataSize,
		"paths_size":     c.Caches.PathsSize,
		"artifacts_size": c.Caches.ArtifactsSize,
		"modules_size":   c.Caches.ModulesSize,
	} {
		if size <= 0 {
			return errors.Newf(errors.ErrCodeInvalidConfig, "%s must be positive, got %d", name, size)
		}
	}
	if !types.Strategy(c.Caches.Strategy).Valid() {
		return errors.Newf(errors.ErrCodeInvalidConfig, "unknown strategy %q", c.Caches.Strategy)
	}
	if c.Caches.FastTierSize < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "fast_tier_size must not be negative, got %d", c.Caches.FastTierSize)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return errors.Newf(errors.ErrCodeInvalidConfig, "metrics port out of range: %d", c.Metrics.Port)
	}
	if c.Warmer.Concurrency <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "warmer concurrency must be positive, got %d", c.Warmer.Concurrency)
	}

	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	valid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			valid = true
			break
		}
	}
	if !valid {
		return errors.Newf(errors.ErrCodeInvalidConfig, "invalid log level %q (must be one of: %s)",
			c.Logging.Level, strings.Join(validLevels, ", "))
	}
	return nil
}

// ManagerOptions converts the configuration into base manager options.
func (c *Configuration) ManagerOptions() manager.Options {
	return manager.Options{
		BaseTTL: c.Caches.BaseTTL,
		Sizes: map[types.CacheName]int{
			types.CacheMetadata:  c.Caches.MetadataSize,
			types.CachePaths:     c.Caches.PathsSize,
			types.CacheArtifacts: c.Caches.ArtifactsSize,
			types.CacheModules:   c.Caches.ModulesSize,
		},
	}
}

// AdvancedManagerOptions converts the configuration into advanced manager
// options.
func (c *Configuration) AdvancedManagerOptions() manager.AdvancedOptions {
	return manager.AdvancedOptions{
		Options:            c.ManagerOptions(),
		Strategy:           types.Strategy(c.Caches.Strategy),
		EvaluationInterval: c.Caches.EvaluationInterval,
		EnableHierarchical: c.Caches.Hierarchical,
		FastTierSize:       c.Caches.FastTierSize,
	}
}

// SaveToFile writes the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
