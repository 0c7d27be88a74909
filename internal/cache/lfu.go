package cache

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

// accessTimeAlpha is the smoothing factor for the per-call latency EMA.
const accessTimeAlpha = 0.1

// LFUCache is a size-bounded, TTL-aware cache with frequency-based
// eviction. When an insert would exceed the bound, exactly one entry is
// evicted: the one with the globally lowest access count, ties broken by
// insertion order.
type LFUCache[V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	clock      Clock
	entries    map[string]*entry[V]
	// accessCounts shadows per-entry access counts for minimum selection.
	// Kept in lock-step with entries by the insert/remove helpers.
	accessCounts map[string]uint64
	nextSeq      uint64
	stats        counters

	ttlEvictions     uint64
	pressureEvictions uint64
	avgAccessTime    time.Duration
}

// NewLFU creates a frequency-evicting cache. It fails fast on a
// non-positive size or TTL.
func NewLFU[V any](cfg Config) (*LFUCache[V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &LFUCache[V]{
		maxSize:      cfg.MaxSize,
		defaultTTL:   cfg.DefaultTTL,
		clock:        cfg.clock(),
		entries:      make(map[string]*entry[V]),
		accessCounts: make(map[string]uint64),
	}, nil
}

// Get returns the value for key if present and not expired. An expired
// entry is removed as a side effect and counts as a miss.
func (c *LFUCache[V]) Get(key string) (V, bool) {
	v, _, _, ok := c.getWithMeta(key)
	return v, ok
}

// getWithMeta is Get plus the entry's post-access count and TTL, used by
// the hierarchical cache for promotion decisions.
func (c *LFUCache[V]) getWithMeta(key string) (V, uint64, time.Duration, bool) {
	start := time.Now()
	c.mu.Lock()
	defer func() {
		c.observeLatency(time.Since(start))
		c.mu.Unlock()
	}()

	var zero V
	ent, ok := c.entries[key]
	if !ok {
		c.stats.misses++
		return zero, 0, 0, false
	}

	now := c.clock.Now()
	if ent.expired(now) {
		c.removeEntry(key)
		c.ttlEvictions++
		c.stats.misses++
		return zero, 0, 0, false
	}

	ent.accessCount++
	ent.lastAccess = now
	c.accessCounts[key] = ent.accessCount
	c.stats.hits++
	return ent.value, ent.accessCount, ent.ttl, true
}

// Set stores value under key with the default TTL.
func (c *LFUCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. Inserting a new key into a full cache
// evicts the least-frequently-used entry first.
func (c *LFUCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.clock.Now()

	if ent, ok := c.entries[key]; ok {
		ent.value = value
		ent.createdAt = now
		ent.ttl = ttl
		ent.accessCount = 0
		ent.lastAccess = now
		c.accessCounts[key] = 0
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictLeastFrequent()
	}

	c.entries[key] = &entry[V]{
		value:      value,
		createdAt:  now,
		ttl:        ttl,
		lastAccess: now,
		seq:        c.nextSeq,
	}
	c.nextSeq++
	c.accessCounts[key] = 0
	if len(c.entries) > c.stats.peakSize {
		c.stats.peakSize = len(c.entries)
	}
}

// Delete removes key and reports whether it was present.
func (c *LFUCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.removeEntry(key)
	return true
}

// Contains reports whether key is present and not expired, without
// updating access statistics.
func (c *LFUCache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	return ok && !ent.expired(c.clock.Now())
}

// Keys returns all non-expired keys.
func (c *LFUCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	keys := make([]string, 0, len(c.entries))
	for key, ent := range c.entries {
		if !ent.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of stored entries, expired or not.
func (c *LFUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries and zeroes statistics.
func (c *LFUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.accessCounts = make(map[string]uint64)
	c.stats = counters{}
	c.ttlEvictions = 0
	c.pressureEvictions = 0
	c.avgAccessTime = 0
}

// CleanupExpired eagerly removes all currently-expired entries and returns
// the number removed.
func (c *LFUCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, ent := range c.entries {
		if ent.expired(now) {
			c.removeEntry(key)
			c.ttlEvictions++
			removed++
		}
	}
	return removed
}

// Resize updates the size bound. A smaller bound evicts least-frequently-
// used entries one at a time until the cache fits.
func (c *LFUCache[V]) Resize(maxSize int) {
	if maxSize < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	for len(c.entries) > c.maxSize {
		c.evictLeastFrequent()
	}
}

// Statistics returns a snapshot of cache statistics.
func (c *LFUCache[V]) Statistics() types.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.entries), c.maxSize)
}

// ExtendedStatistics returns frequency-cache statistics on top of the base
// snapshot.
func (c *LFUCache[V]) ExtendedStatistics() types.ExtendedStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.stats.snapshot(len(c.entries), c.maxSize)
	return types.ExtendedStats{
		Stats:                   base,
		TTLEvictions:            c.ttlEvictions,
		MemoryPressureEvictions: c.pressureEvictions,
		AvgAccessTime:           c.avgAccessTime,
		CacheEfficiency:         base.HitRate,
	}
}

// evictLeastFrequent removes the single entry with the lowest access
// count, breaking ties by insertion order.
func (c *LFUCache[V]) evictLeastFrequent() {
	if len(c.entries) == 0 {
		return
	}

	var victim string
	var victimEnt *entry[V]
	for key, ent := range c.entries {
		if victimEnt == nil ||
			ent.accessCount < victimEnt.accessCount ||
			(ent.accessCount == victimEnt.accessCount && ent.seq < victimEnt.seq) {
			victim = key
			victimEnt = ent
		}
	}

	c.removeEntry(victim)
	c.stats.evictions++
	c.pressureEvictions++
}

func (c *LFUCache[V]) removeEntry(key string) {
	delete(c.entries, key)
	delete(c.accessCounts, key)
}

func (c *LFUCache[V]) observeLatency(d time.Duration) {
	if c.avgAccessTime == 0 {
		c.avgAccessTime = d
		return
	}
	c.avgAccessTime = time.Duration(accessTimeAlpha*float64(d) + (1-accessTimeAlpha)*float64(c.avgAccessTime))
}

var (
	_ types.Cache[string]         = (*LFUCache[string])(nil)
	_ types.ExtendedStatsProvider = (*LFUCache[string])(nil)
)
