// Package types defines shared types used across the tiercache packages.
package types

import "time"

// Strategy identifies an eviction strategy.
type Strategy string

const (
	// StrategyRecency evicts least-recently-used entries in batches.
	StrategyRecency Strategy = "recency"
	// StrategyFrequency evicts the single least-frequently-used entry.
	StrategyFrequency Strategy = "frequency"
	// StrategyAdaptive switches between recency and frequency based on
	// observed access patterns.
	StrategyAdaptive Strategy = "adaptive"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRecency, StrategyFrequency, StrategyAdaptive:
		return true
	}
	return false
}

// CacheName identifies one of the manager's named caches.
type CacheName string

const (
	// CacheMetadata holds short-lived metadata.
	CacheMetadata CacheName = "metadata"
	// CachePaths holds resolved-path metadata.
	CachePaths CacheName = "paths"
	// CacheArtifacts holds compiled artifacts.
	CacheArtifacts CacheName = "artifacts"
	// CacheModules holds loaded module handles.
	CacheModules CacheName = "modules"
)

// CacheNames returns all configured cache names in a fixed order.
func CacheNames() []CacheName {
	return []CacheName{CacheMetadata, CachePaths, CacheArtifacts, CacheModules}
}

// Valid reports whether n is one of the configured cache names.
func (n CacheName) Valid() bool {
	switch n {
	case CacheMetadata, CachePaths, CacheArtifacts, CacheModules:
		return true
	}
	return false
}

// Stats represents cache performance statistics.
type Stats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	PeakSize  int     `json:"peak_size"`
	HitRate   float64 `json:"hit_rate"`
	FillRatio float64 `json:"fill_ratio"`
}

// ExtendedStats adds frequency-cache bookkeeping on top of Stats.
type ExtendedStats struct {
	Stats
	TTLEvictions            uint64        `json:"ttl_evictions"`
	MemoryPressureEvictions uint64        `json:"memory_pressure_evictions"`
	AvgAccessTime           time.Duration `json:"avg_access_time"`
	CacheEfficiency         float64       `json:"cache_efficiency"`
}

// StrategyInfo describes the runtime state of an adaptive cache.
type StrategyInfo struct {
	CurrentStrategy  Strategy  `json:"current_strategy"`
	StrategySwitches uint64    `json:"strategy_switches"`
	LastEvaluation   time.Time `json:"last_evaluation"`
	TrackedKeys      int       `json:"tracked_keys"`
}

// HierarchicalStats aggregates both tiers of a hierarchical cache.
type HierarchicalStats struct {
	FastTier       Stats   `json:"fast_tier"`
	SlowTier       Stats   `json:"slow_tier"`
	FastHits       uint64  `json:"fast_hits"`
	SlowHits       uint64  `json:"slow_hits"`
	TotalMisses    uint64  `json:"total_misses"`
	Promotions     uint64  `json:"promotions"`
	TotalRequests  uint64  `json:"total_requests"`
	OverallHitRate float64 `json:"overall_hit_rate"`
	FastHitRate    float64 `json:"fast_hit_rate"`
}
