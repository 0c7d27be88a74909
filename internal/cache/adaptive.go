package cache

import (
	"container/list"
	"math"
	"sync"
	"time"

	"github.com/tiercache/tiercache/pkg/types"
)

const (
	// defaultEvaluationInterval is how often access patterns are re-analyzed.
	defaultEvaluationInterval = 300 * time.Second
	// accessWindowSpan bounds the per-key sliding window of access times.
	accessWindowSpan = time.Hour
	// cvSwitchToFrequency is the dispersion above which a skewed pattern
	// triggers a switch from recency to frequency eviction.
	cvSwitchToFrequency = 0.5
	// cvSwitchToRecency is the dispersion below which a uniform pattern
	// switches back. The gap between the two thresholds is the hysteresis
	// band that prevents oscillation.
	cvSwitchToRecency = 0.3
)

// AdaptiveConfig configures an adaptive cache.
type AdaptiveConfig struct {
	Config
	// EvaluationInterval is the minimum time between strategy evaluations.
	// Zero means the 300s default.
	EvaluationInterval time.Duration
}

// AdaptiveCache wraps the bounded-cache mechanics and periodically analyzes
// access-frequency dispersion, switching its effective eviction policy
// between recency and frequency.
type AdaptiveCache[V any] struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	clock      Clock
	entries    map[string]*entry[V]
	recency    *list.List
	nextSeq    uint64
	stats      counters

	strategy     types.Strategy
	windows      map[string][]time.Time
	evalInterval time.Duration
	lastEval     time.Time
	switches     uint64
}

// NewAdaptive creates an adaptive cache starting in recency mode.
func NewAdaptive[V any](cfg AdaptiveConfig) (*AdaptiveCache[V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.EvaluationInterval <= 0 {
		cfg.EvaluationInterval = defaultEvaluationInterval
	}
	clock := cfg.clock()
	return &AdaptiveCache[V]{
		maxSize:      cfg.MaxSize,
		defaultTTL:   cfg.DefaultTTL,
		clock:        clock,
		entries:      make(map[string]*entry[V]),
		recency:      list.New(),
		strategy:     types.StrategyRecency,
		windows:      make(map[string][]time.Time),
		evalInterval: cfg.EvaluationInterval,
		lastEval:     clock.Now(),
	}, nil
}

// Get returns the value for key if present and not expired. Every call may
// trigger a strategy evaluation once the evaluation interval has elapsed.
func (c *AdaptiveCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.maybeEvaluate(now)

	var zero V
	ent, ok := c.entries[key]
	if !ok {
		c.stats.misses++
		return zero, false
	}

	if ent.expired(now) {
		c.removeEntry(key, ent)
		delete(c.windows, key)
		c.stats.misses++
		return zero, false
	}

	ent.accessCount++
	ent.lastAccess = now
	c.recency.MoveToFront(ent.element)
	c.recordAccess(key, now)
	c.stats.hits++
	return ent.value, true
}

// Set stores value under key with the default TTL.
func (c *AdaptiveCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. Eviction on overflow dispatches to the
// current strategy: a single least-frequent entry in frequency mode, a
// least-recently-used batch otherwise.
func (c *AdaptiveCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
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
		c.evict()
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
func (c *AdaptiveCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeEntry(key, ent)
	delete(c.windows, key)
	return true
}

// Contains reports whether key is present and not expired, without
// updating access statistics or the access window.
func (c *AdaptiveCache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	return ok && !ent.expired(c.clock.Now())
}

// Keys returns all non-expired keys.
func (c *AdaptiveCache[V]) Keys() []string {
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
func (c *AdaptiveCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries, access windows, and statistics. The current
// strategy is retained.
func (c *AdaptiveCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
	c.recency.Init()
	c.windows = make(map[string][]time.Time)
	c.stats = counters{}
}

// CleanupExpired eagerly removes all currently-expired entries and returns
// the number removed.
func (c *AdaptiveCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, ent := range c.entries {
		if ent.expired(now) {
			c.removeEntry(key, ent)
			delete(c.windows, key)
			removed++
		}
	}
	return removed
}

// Resize updates the size bound, evicting with the current strategy until
// the cache fits.
func (c *AdaptiveCache[V]) Resize(maxSize int) {
	if maxSize < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	for len(c.entries) > c.maxSize {
		c.evictOne()
	}
}

// Statistics returns a snapshot of cache statistics.
func (c *AdaptiveCache[V]) Statistics() types.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.snapshot(len(c.entries), c.maxSize)
}

// StrategyInfo reports the current strategy and evaluation state.
func (c *AdaptiveCache[V]) StrategyInfo() types.StrategyInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.StrategyInfo{
		CurrentStrategy:  c.strategy,
		StrategySwitches: c.switches,
		LastEvaluation:   c.lastEval,
		TrackedKeys:      len(c.windows),
	}
}

// Reevaluate forces a strategy evaluation regardless of the interval and
// returns the strategy before and after.
func (c *AdaptiveCache[V]) Reevaluate() (types.Strategy, types.Strategy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.strategy
	c.evaluate(c.clock.Now())
	return old, c.strategy, c.strategy != old
}

// recordAccess appends now to key's sliding window, discarding entries
// older than the window span.
func (c *AdaptiveCache[V]) recordAccess(key string, now time.Time) {
	window := c.windows[key]
	cutoff := now.Add(-accessWindowSpan)
	trimmed := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	c.windows[key] = append(trimmed, now)
}

func (c *AdaptiveCache[V]) maybeEvaluate(now time.Time) {
	if now.Sub(c.lastEval) > c.evalInterval {
		c.evaluate(now)
	}
}

// evaluate computes the coefficient of variation of per-key access
// frequencies and applies the hysteresis rule. On a strategy change all
// windows are cleared so measurement starts fresh.
func (c *AdaptiveCache[V]) evaluate(now time.Time) {
	c.lastEval = now
	if len(c.windows) == 0 {
		return
	}

	cutoff := now.Add(-accessWindowSpan)
	var sum float64
	freqs := make([]float64, 0, len(c.windows))
	for key, window := range c.windows {
		n := 0
		for _, t := range window {
			if t.After(cutoff) {
				n++
			}
		}
		if n == 0 {
			delete(c.windows, key)
			continue
		}
		freqs = append(freqs, float64(n))
		sum += float64(n)
	}
	if len(freqs) == 0 {
		return
	}

	mean := sum / float64(len(freqs))
	if mean == 0 {
		return
	}
	var variance float64
	for _, f := range freqs {
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(len(freqs))
	cv := math.Sqrt(variance) / mean

	next := c.strategy
	switch {
	case cv > cvSwitchToFrequency && c.strategy == types.StrategyRecency:
		next = types.StrategyFrequency
	case cv < cvSwitchToRecency && c.strategy == types.StrategyFrequency:
		next = types.StrategyRecency
	}
	if next != c.strategy {
		c.strategy = next
		c.switches++
		c.windows = make(map[string][]time.Time)
	}
}

func (c *AdaptiveCache[V]) evict() {
	if c.strategy == types.StrategyFrequency {
		c.evictOne()
		return
	}
	n := c.maxSize / 4
	if n < 1 {
		n = 1
	}
	for i := 0; i < n && len(c.entries) > 0; i++ {
		c.evictOne()
	}
}

// evictOne removes a single entry according to the current strategy.
func (c *AdaptiveCache[V]) evictOne() {
	if c.strategy == types.StrategyFrequency {
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
		if victimEnt != nil {
			c.removeEntry(victim, victimEnt)
			delete(c.windows, victim)
			c.stats.evictions++
		}
		return
	}

	elem := c.recency.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.entries[key]; ok {
		c.removeEntry(key, ent)
		delete(c.windows, key)
		c.stats.evictions++
	} else {
		c.recency.Remove(elem)
	}
}

func (c *AdaptiveCache[V]) removeEntry(key string, ent *entry[V]) {
	c.recency.Remove(ent.element)
	delete(c.entries, key)
}

var (
	_ types.Cache[string]    = (*AdaptiveCache[string])(nil)
	_ types.StrategyReporter = (*AdaptiveCache[string])(nil)
	_ types.Reevaluator      = (*AdaptiveCache[string])(nil)
)
