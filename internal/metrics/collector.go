// Package metrics exposes cache statistics as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiercache/tiercache/pkg/types"
)

// Config represents metrics configuration.
type Config struct {
	Enabled   bool          `yaml:"enabled"`
	Port      int           `yaml:"port"`
	Path      string        `yaml:"path"`
	Namespace string        `yaml:"namespace"`
	Interval  time.Duration `yaml:"interval"`
}

// StatsSource supplies the per-cache statistics snapshot to publish,
// typically a manager's Statistics method.
type StatsSource func() map[types.CacheName]types.Stats

// Collector publishes per-cache statistics through a Prometheus registry
// and an optional HTTP endpoint.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	hits      *prometheus.GaugeVec
	misses    *prometheus.GaugeVec
	evictions *prometheus.GaugeVec
	size      *prometheus.GaugeVec
	maxSize   *prometheus.GaugeVec
	hitRate   *prometheus.GaugeVec
	fillRatio *prometheus.GaugeVec

	server *http.Server
}

// NewCollector creates a metrics collector.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Port:      8080,
			Path:      "/metrics",
			Namespace: "tiercache",
			Interval:  30 * time.Second,
		}
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()
	c := &Collector{
		config:   config,
		registry: registry,
	}

	gauge := func(name, help string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      name,
			Help:      help,
		}, []string{"cache"})
		registry.MustRegister(g)
		return g
	}

	c.hits = gauge("cache_hits_total", "Cumulative cache hits")
	c.misses = gauge("cache_misses_total", "Cumulative cache misses")
	c.evictions = gauge("cache_evictions_total", "Cumulative cache evictions")
	c.size = gauge("cache_entries", "Current number of cache entries")
	c.maxSize = gauge("cache_max_entries", "Configured cache entry bound")
	c.hitRate = gauge("cache_hit_rate", "Hit rate in [0,1]")
	c.fillRatio = gauge("cache_fill_ratio", "Fill ratio in [0,1]")

	return c, nil
}

// Enabled reports whether the collector publishes anything.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// Registry returns the collector's Prometheus registry, nil when disabled.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Update publishes one statistics snapshot.
func (c *Collector) Update(stats map[types.CacheName]types.Stats) {
	if !c.config.Enabled {
		return
	}
	for name, st := range stats {
		labels := prometheus.Labels{"cache": string(name)}
		c.hits.With(labels).Set(float64(st.Hits))
		c.misses.With(labels).Set(float64(st.Misses))
		c.evictions.With(labels).Set(float64(st.Evictions))
		c.size.With(labels).Set(float64(st.Size))
		c.maxSize.With(labels).Set(float64(st.MaxSize))
		c.hitRate.With(labels).Set(st.HitRate)
		c.fillRatio.With(labels).Set(st.FillRatio)
	}
}

// Watch polls source on the configured interval and publishes each
// snapshot until ctx is canceled.
func (c *Collector) Watch(ctx context.Context, source StatsSource) {
	if !c.config.Enabled {
		return
	}
	interval := c.config.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Update(source())
	for {
		select {
		case <-ticker.C:
			c.Update(source())
		case <-ctx.Done():
			return
		}
	}
}

// Start serves the metrics endpoint. No-op when disabled.
func (c *Collector) Start() error {
	if !c.config.Enabled {
		return nil
	}

	path := c.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics serving is best-effort; the engine keeps running.
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	return nil
}

// Stop shuts the metrics endpoint down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}
