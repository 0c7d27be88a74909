package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

// Config configures a single cache instance.
type Config struct {
	// MaxSize is the hard upper bound on entry count. Must be positive.
	MaxSize int
	// DefaultTTL is applied to entries stored without an explicit TTL.
	// Must be positive.
	DefaultTTL time.Duration
	// Clock overrides the time source; nil means the system clock.
	Clock Clock
}

func (c *Config) validate() error {
	if c.MaxSize <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "max size must be positive, got %d", c.MaxSize)
	}
	if c.DefaultTTL <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "default TTL must be positive, got %v", c.DefaultTTL)
	}
	return nil
}

func (c *Config) clock() Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return realClock{}
}

// entry holds a cached value and its bookkeeping.
type entry[V any] struct {
	value       V
	createdAt   time.Time
	ttl         time.Duration
	accessCount uint64
	lastAccess  time.Time
	element     *list.Element // position in the recency list
	seq         uint64        // insertion sequence, for deterministic tie-breaks
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// counters are the monotonic statistics shared by all strategies.
// Reset only by Clear.
type counters struct {
	hits      uint64
	misses    uint64
	evictions uint64
	peakSize  int
}

func (s *counters) snapshot(size, maxSize int) types.Stats {
	st := types.Stats{
		Size:      size,
		MaxSize:   maxSize,
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		PeakSize:  s.peakSize,
	}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	if maxSize > 0 {
		st.FillRatio = float64(size) / float64(maxSize)
	}
	return st
}

// LRUCache is a size-bounded, TTL-aware cache with recency-based eviction.
// When an insert would exceed the bound, a batch of max(1, maxSize/4)
// least-recently-used entries is evicted before the insert.
type LRUCache[V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	clock      Clock
	entries    map[string]*entry[V]
	recency    *list.List // front = most recently used
	nextSeq    uint64
	stats      counters
}

// NewLRU creates a recency-evicting cache. It fails fast on a non-positive
// size or TTL.
func NewLRU[V any](cfg Config) (*LRUCache[V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &LRUCache[V]{
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		clock:      cfg.clock(),
		entries:    make(map[string]*entry[V]),
		recency:    list.New(),
	}, nil
}

// Get returns the value for key if present and not expired. An expired
// entry is removed as a side effect and counts as a miss.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	ent, ok := c.entries[key]
	if !ok {
		c.stats.misses++
		return zero, false
	}

	now := c.clock.Now()
	if ent.expired(now) {
		c.removeEntry(key, ent)
		c.stats.misses++
		return zero, false
	}

	ent.accessCount++
	ent.lastAccess = now
	c.recency.MoveToFront(ent.element)
	c.stats.hits++
	return ent.value, true
}

// Set stores value under key with the default TTL.
func (c *LRUCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. Overwriting an existing key refreshes
// the entry and its recency position without triggering eviction; inserting
// a new key into a full cache evicts a batch first.
func (c *LRUCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
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
		c.recency.MoveToFront(ent.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictBatch()
	}

	ent := &entry[V]{
		value:      value,
		createdAt:  now,
		ttl:        ttl,
		lastAccess: now,
		seq:        c.nextSeq,
	}
	c.nextSeq++
	ent.element = c.recency.PushFront(key)
	c.entries[key] = ent
	if len(c.entries) > c.stats.peakSize {
		c.stats.peakSize = len(c.entries)
	}
}

// Delete removes key and reports whether it was present.
func (c *LRUCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeEntry(key, ent)
	return true
}

// Contains reports whether key is present and not expired. It does not
// update access statistics.
func (c *LRUCache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	return ok && !ent.expired(c.clock.Now())
}

// Keys returns all non-expired keys.
func (c *LRUCache[V]) Keys() []string {
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
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries and zeroes statistics.
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.recency.Init()
	c.stats = counters{}
}

// CleanupExpired eagerly removes all currently-expired entries and returns
// the number removed. Complementary to the lazy expiration done by Get.
func (c *LRUCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, ent := range c.entries {
		if ent.expired(now) {
			c.removeEntry(key, ent)
			removed++
		}
	}
	return removed
}

// Resize updates the size bound. A smaller bound evicts least-recently-used
// entries immediately until the cache fits.
func (c *LRUCache[V]) Resize(maxSize int) {
	if maxSize < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	for len(c.entries) > c.maxSize {
		c.evictOldest()
	}
}

// Statistics returns a snapshot of cache statistics.
func (c *LRUCache[V]) Statistics() types.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.entries), c.maxSize)
}

// evictBatch removes max(1, maxSize/4) least-recently-used entries.
func (c *LRUCache[V]) evictBatch() {
	n := c.maxSize / 4
	if n < 1 {
		n = 1
	}
	for i := 0; i < n && c.recency.Len() > 0; i++ {
		c.evictOldest()
	}
}

func (c *LRUCache[V]) evictOldest() {
	elem := c.recency.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.entries[key]; ok {
		c.removeEntry(key, ent)
		c.stats.evictions++
	} else {
		c.recency.Remove(elem)
	}
}

func (c *LRUCache[V]) removeEntry(key string, ent *entry[V]) {
	c.recency.Remove(ent.element)
	delete(c.entries, key)
}

var _ types.Cache[string] = (*LRUCache[string])(nil)
