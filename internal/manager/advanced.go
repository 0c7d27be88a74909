package manager

import (
	"fmt"
	"time"

	"github.com/tiercache/tiercache/internal/cache"
	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

// AdvancedOptions configures an AdvancedManager.
type AdvancedOptions struct {
	Options
	// Strategy is applied uniformly to the metadata, artifacts, and
	// modules caches. Empty means recency.
	Strategy types.Strategy
	// EvaluationInterval tunes adaptive caches; zero keeps their default.
	EvaluationInterval time.Duration
	// EnableHierarchical replaces the paths cache with a two-tier cache.
	EnableHierarchical bool
	// FastTierSize bounds the hierarchical fast tier. Zero means one
	// fifth of the paths cache size.
	FastTierSize int
}

// AdvancedManager is a Manager whose caches are built with a selectable
// eviction strategy, with optional hierarchical mode for the paths cache.
// It adds optimization and efficiency reporting on top of the base
// contract.
type AdvancedManager[V any] struct {
	*Manager[V]
}

// NewAdvanced creates a strategy-parameterized manager.
func NewAdvanced[V any](opts AdvancedOptions) (*AdvancedManager[V], error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = types.StrategyRecency
	}
	if !strategy.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "unknown strategy %q", strategy)
	}
	if opts.FastTierSize < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "fast tier size must be positive, got %d", opts.FastTierSize)
	}

	factory := func(name types.CacheName, size int, ttl time.Duration, clock cache.Clock) (types.Cache[V], error) {
		if name == types.CachePaths && opts.EnableHierarchical {
			fastSize := opts.FastTierSize
			if fastSize == 0 {
				fastSize = size / 5
			}
			if fastSize < 1 {
				fastSize = 1
			}
			slowSize := size - fastSize
			if slowSize < 1 {
				slowSize = 1
			}
			return cache.NewHierarchical[V](cache.HierarchicalConfig{
				FastSize:   fastSize,
				SlowSize:   slowSize,
				DefaultTTL: ttl,
				Clock:      clock,
			})
		}

		cfg := cache.Config{MaxSize: size, DefaultTTL: ttl, Clock: clock}
		switch strategy {
		case types.StrategyFrequency:
			return cache.NewLFU[V](cfg)
		case types.StrategyAdaptive:
			return cache.NewAdaptive[V](cache.AdaptiveConfig{
				Config:             cfg,
				EvaluationInterval: opts.EvaluationInterval,
			})
		default:
			return cache.NewLRU[V](cfg)
		}
	}

	m, err := newManager(opts.Options, factory)
	if err != nil {
		return nil, err
	}
	return &AdvancedManager[V]{Manager: m}, nil
}

// ExtendedReport carries the base statistics of one cache plus whatever
// extended payloads its strategy supports.
type ExtendedReport struct {
	Base     types.Stats              `json:"base"`
	Extended *types.ExtendedStats     `json:"extended,omitempty"`
	Strategy *types.StrategyInfo      `json:"strategy,omitempty"`
	Tiers    *types.HierarchicalStats `json:"tiers,omitempty"`
}

// ExtendedStatistics returns base statistics plus, for any cache that
// supports it, its extended-statistics or strategy-info payload.
func (m *AdvancedManager[V]) ExtendedStatistics() map[types.CacheName]ExtendedReport {
	reports := make(map[types.CacheName]ExtendedReport, len(m.caches))
	for name, c := range m.caches {
		report := ExtendedReport{Base: c.Statistics()}
		if p, ok := c.(types.ExtendedStatsProvider); ok {
			ext := p.ExtendedStatistics()
			report.Extended = &ext
		}
		if p, ok := c.(types.StrategyReporter); ok {
			info := p.StrategyInfo()
			report.Strategy = &info
		}
		if p, ok := c.(types.TierStatsProvider); ok {
			tiers := p.TierStatistics()
			report.Tiers = &tiers
		}
		reports[name] = report
	}
	return reports
}

// OptimizeResult reports what Optimize did to one cache.
type OptimizeResult struct {
	ExpiredRemoved int            `json:"expired_removed"`
	OldStrategy    types.Strategy `json:"old_strategy,omitempty"`
	NewStrategy    types.Strategy `json:"new_strategy,omitempty"`
	Changed        bool           `json:"changed"`
}

// Optimize sweeps expired entries from every cache, then forces a strategy
// re-evaluation on any adaptive caches.
func (m *AdvancedManager[V]) Optimize() map[types.CacheName]OptimizeResult {
	results := make(map[types.CacheName]OptimizeResult, len(m.caches))
	for name, c := range m.caches {
		result := OptimizeResult{ExpiredRemoved: c.CleanupExpired()}
		if r, ok := c.(types.Reevaluator); ok {
			result.OldStrategy, result.NewStrategy, result.Changed = r.Reevaluate()
			if result.Changed {
				m.logger.Info("eviction strategy switched",
					"cache", string(name),
					"from", string(result.OldStrategy),
					"to", string(result.NewStrategy))
			}
		}
		results[name] = result
	}
	return results
}

// EfficiencyReport describes how well one cache is using its space.
type EfficiencyReport struct {
	FillRatio       float64  `json:"fill_ratio"`
	HitRate         float64  `json:"hit_rate"`
	EfficiencyScore float64  `json:"efficiency_score"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// MemoryEfficiencyReport returns per-cache fill and hit ratios with
// textual tuning recommendations.
func (m *AdvancedManager[V]) MemoryEfficiencyReport() map[types.CacheName]EfficiencyReport {
	reports := make(map[types.CacheName]EfficiencyReport, len(m.caches))
	for name, c := range m.caches {
		st := c.Statistics()
		report := EfficiencyReport{
			FillRatio:       st.FillRatio,
			HitRate:         st.HitRate,
			EfficiencyScore: st.FillRatio * st.HitRate,
		}
		if st.FillRatio < 0.3 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("shrink cache %s: fill ratio below 30%%", name))
		}
		if st.FillRatio > 0.9 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("grow cache %s: fill ratio above 90%%", name))
		}
		if st.Hits+st.Misses > 0 && st.HitRate < 0.5 {
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("retune TTL for cache %s: hit rate below 50%%", name))
		}
		reports[name] = report
	}
	return reports
}
