package cache

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

const (
	// promotionThreshold is the slow-tier access count at which a value is
	// copied into the fast tier.
	promotionThreshold = 3
	// fastTierFraction is the share of the total size given to the fast
	// tier on Resize.
	fastTierFraction = 5 // one fifth
)

// HierarchicalConfig configures a two-tier cache.
type HierarchicalConfig struct {
	// FastSize bounds the small recency-based tier.
	FastSize int
	// SlowSize bounds the larger frequency-based tier.
	SlowSize int
	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL time.Duration
	// Clock overrides the time source; nil means the system clock.
	Clock Clock
}

// HierarchicalCache composes a small, fast recency tier with a larger,
// slower frequency tier. Writes always land in the slow tier; the fast
// tier is populated solely by promotion when a slow-tier entry has been
// read promotionThreshold times. Promotion copies the value, it never
// aliases entries across tiers.
type HierarchicalCache[V any] struct {
	// mu coordinates cross-tier operations and is always acquired before
	// either tier's internal lock.
	mu   sync.Mutex
	fast *LRUCache[V]
	slow *LFUCache[V]

	fastHits    uint64
	slowHits    uint64
	totalMisses uint64
	promotions  uint64
}

// NewHierarchical creates a two-tier cache.
func NewHierarchical[V any](cfg HierarchicalConfig) (*HierarchicalCache[V], error) {
	if cfg.FastSize <= 0 || cfg.SlowSize <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig,
			"tier sizes must be positive, got fast=%d slow=%d", cfg.FastSize, cfg.SlowSize)
	}

	fast, err := NewLRU[V](Config{MaxSize: cfg.FastSize, DefaultTTL: cfg.DefaultTTL, Clock: cfg.Clock})
	if err != nil {
		return nil, err
	}
	slow, err := NewLFU[V](Config{MaxSize: cfg.SlowSize, DefaultTTL: cfg.DefaultTTL, Clock: cfg.Clock})
	if err != nil {
		return nil, err
	}
	return &HierarchicalCache[V]{fast: fast, slow: slow}, nil
}

// Get checks the fast tier first, then the slow tier. A slow-tier hit with
// an access count at or above the promotion threshold copies the value
// into the fast tier using the slow entry's TTL.
func (c *HierarchicalCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.fast.Get(key); ok {
		c.fastHits++
		return v, true
	}

	v, count, ttl, ok := c.slow.getWithMeta(key)
	if !ok {
		c.totalMisses++
		var zero V
		return zero, false
	}

	c.slowHits++
	if count >= promotionThreshold {
		c.fast.SetWithTTL(key, v, ttl)
		c.promotions++
	}
	return v, true
}

// Set stores value under key in the slow tier only. The fast tier is
// populated solely via promotion on read.
func (c *HierarchicalCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key in the slow tier only.
func (c *HierarchicalCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slow.SetWithTTL(key, value, ttl)
}

// Delete attempts deletion from both tiers and reports whether either
// removed the key.
func (c *HierarchicalCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	fastRemoved := c.fast.Delete(key)
	slowRemoved := c.slow.Delete(key)
	return fastRemoved || slowRemoved
}

// Contains reports whether key is live in either tier.
func (c *HierarchicalCache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fast.Contains(key) || c.slow.Contains(key)
}

// Keys returns the union of non-expired keys across both tiers.
func (c *HierarchicalCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	var keys []string
	for _, key := range c.fast.Keys() {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, key := range c.slow.Keys() {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the total number of entries across both tiers.
func (c *HierarchicalCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fast.Len() + c.slow.Len()
}

// Clear empties both tiers and resets tier counters.
func (c *HierarchicalCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fast.Clear()
	c.slow.Clear()
	c.fastHits = 0
	c.slowHits = 0
	c.totalMisses = 0
	c.promotions = 0
}

// CleanupExpired sweeps both tiers and returns the total removed.
func (c *HierarchicalCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fast.CleanupExpired() + c.slow.CleanupExpired()
}

// Resize splits the new total 20% fast / 80% slow, with a minimum fast
// tier of one entry, and resizes each tier independently.
func (c *HierarchicalCache[V]) Resize(total int) {
	if total < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fastSize := total / fastTierFraction
	if fastSize < 1 {
		fastSize = 1
	}
	c.fast.Resize(fastSize)
	c.slow.Resize(total - fastSize)
}

// Statistics returns combined statistics across both tiers.
func (c *HierarchicalCache[V]) Statistics() types.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.combinedLocked()
}

// TierStatistics returns per-tier statistics plus promotion and hit-rate
// accounting.
func (c *HierarchicalCache[V]) TierStatistics() types.HierarchicalStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := types.HierarchicalStats{
		FastTier:    c.fast.Statistics(),
		SlowTier:    c.slow.Statistics(),
		FastHits:    c.fastHits,
		SlowHits:    c.slowHits,
		TotalMisses: c.totalMisses,
		Promotions:  c.promotions,
	}
	st.TotalRequests = st.FastHits + st.SlowHits + st.TotalMisses
	if st.TotalRequests > 0 {
		st.OverallHitRate = float64(st.FastHits+st.SlowHits) / float64(st.TotalRequests)
		st.FastHitRate = float64(st.FastHits) / float64(st.TotalRequests)
	}
	return st
}

func (c *HierarchicalCache[V]) combinedLocked() types.Stats {
	fast := c.fast.Statistics()
	slow := c.slow.Statistics()

	combined := types.Stats{
		Size:      fast.Size + slow.Size,
		MaxSize:   fast.MaxSize + slow.MaxSize,
		Hits:      c.fastHits + c.slowHits,
		Misses:    c.totalMisses,
		Evictions: fast.Evictions + slow.Evictions,
		PeakSize:  fast.PeakSize + slow.PeakSize,
	}
	if total := combined.Hits + combined.Misses; total > 0 {
		combined.HitRate = float64(combined.Hits) / float64(total)
	}
	if combined.MaxSize > 0 {
		combined.FillRatio = float64(combined.Size) / float64(combined.MaxSize)
	}
	return combined
}

var (
	_ types.Cache[string]     = (*HierarchicalCache[string])(nil)
	_ types.TierStatsProvider = (*HierarchicalCache[string])(nil)
)
