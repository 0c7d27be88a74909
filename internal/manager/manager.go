// Package manager coordinates the engine's named caches.
//
// A Manager owns a fixed set of four caches, each independently sized and
// TTL-scaled from one shared base TTL. Scoped managers are fully
// independent copies of a manager's configuration: they share no storage
// with their parent or with each other.
package manager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tiercache/tiercache/internal/cache"
	"github.com/tiercache/tiercache/pkg/errors"
	"github.com/tiercache/tiercache/pkg/types"
)

// DefaultBaseTTL is the shared base TTL when none is configured.
const DefaultBaseTTL = 5 * time.Minute

// defaultSizes are the per-cache entry bounds when none are configured.
var defaultSizes = map[types.CacheName]int{
	types.CacheMetadata:  256,
	types.CachePaths:     512,
	types.CacheArtifacts: 128,
	types.CacheModules:   64,
}

// ttlMultipliers scale the base TTL per cache: data that churns rarely
// gets a longer multiple.
var ttlMultipliers = map[types.CacheName]time.Duration{
	types.CacheMetadata:  1,
	types.CachePaths:     2,
	types.CacheArtifacts: 4,
	types.CacheModules:   8,
}

// avgObjectSizes are the fixed per-category byte sizes used by the
// memory-usage heuristic. Diagnostic only.
var avgObjectSizes = map[types.CacheName]int64{
	types.CacheMetadata:  256,
	types.CachePaths:     512,
	types.CacheArtifacts: 4096,
	types.CacheModules:   8192,
}

// Options configures a Manager.
type Options struct {
	// BaseTTL is the shared base TTL; each cache uses a fixed multiple of
	// it. Zero means DefaultBaseTTL.
	BaseTTL time.Duration
	// Sizes overrides per-cache entry bounds. Omitted names use defaults.
	Sizes map[types.CacheName]int
	// TTLOverrides replaces the scaled TTL for specific caches.
	TTLOverrides map[types.CacheName]time.Duration
	// Clock overrides the time source; nil means the system clock.
	Clock cache.Clock
	// Logger receives operational logging; nil means slog.Default().
	Logger *slog.Logger
}

// cacheFactory builds one named cache. The advanced manager substitutes
// strategy-specific factories; scoped managers inherit their parent's.
type cacheFactory[V any] func(name types.CacheName, size int, ttl time.Duration, clock cache.Clock) (types.Cache[V], error)

func lruFactory[V any](_ types.CacheName, size int, ttl time.Duration, clock cache.Clock) (types.Cache[V], error) {
	return cache.NewLRU[V](cache.Config{MaxSize: size, DefaultTTL: ttl, Clock: clock})
}

// Manager owns the four named caches and dispatches uniform operations
// across them. Cross-cache operations need no manager-level atomicity:
// each cache serializes its own operations.
type Manager[V any] struct {
	caches  map[types.CacheName]types.Cache[V]
	sizes   map[types.CacheName]int
	ttls    map[types.CacheName]time.Duration
	baseTTL time.Duration
	clock   cache.Clock
	logger  *slog.Logger
	factory cacheFactory[V]
}

// New creates a manager whose caches all use recency-based eviction.
func New[V any](opts Options) (*Manager[V], error) {
	return newManager(opts, lruFactory[V])
}

func newManager[V any](opts Options, factory cacheFactory[V]) (*Manager[V], error) {
	baseTTL := opts.BaseTTL
	if baseTTL == 0 {
		baseTTL = DefaultBaseTTL
	}
	if baseTTL < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "base TTL must be positive, got %v", baseTTL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager[V]{
		caches:  make(map[types.CacheName]types.Cache[V]),
		sizes:   make(map[types.CacheName]int),
		ttls:    make(map[types.CacheName]time.Duration),
		baseTTL: baseTTL,
		clock:   opts.Clock,
		logger:  logger,
		factory: factory,
	}

	for _, name := range types.CacheNames() {
		size := defaultSizes[name]
		if s, ok := opts.Sizes[name]; ok {
			size = s
		}
		if size <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "cache %q size must be positive, got %d", name, size)
		}

		ttl := baseTTL * ttlMultipliers[name]
		if override, ok := opts.TTLOverrides[name]; ok {
			ttl = override
		}
		if ttl <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "cache %q TTL must be positive, got %v", name, ttl)
		}

		c, err := factory(name, size, ttl, opts.Clock)
		if err != nil {
			return nil, err
		}
		m.caches[name] = c
		m.sizes[name] = size
		m.ttls[name] = ttl
	}

	return m, nil
}

func (m *Manager[V]) cacheFor(name types.CacheName) (types.Cache[V], error) {
	c, ok := m.caches[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownCache, "unknown cache name %q", name)
	}
	return c, nil
}

// Get returns the value for key in the named cache.
func (m *Manager[V]) Get(name types.CacheName, key string) (V, bool, error) {
	c, err := m.cacheFor(name)
	if err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := c.Get(key)
	return v, ok, nil
}

// Set stores value under key in the named cache with its default TTL.
func (m *Manager[V]) Set(name types.CacheName, key string, value V) error {
	return m.SetWithTTL(name, key, value, 0)
}

// SetWithTTL stores value under key in the named cache. A non-positive ttl
// uses the cache's default.
func (m *Manager[V]) SetWithTTL(name types.CacheName, key string, value V, ttl time.Duration) error {
	c, err := m.cacheFor(name)
	if err != nil {
		return err
	}
	c.SetWithTTL(key, value, ttl)
	return nil
}

// Delete removes key from the named cache and reports whether it was
// present.
func (m *Manager[V]) Delete(name types.CacheName, key string) (bool, error) {
	c, err := m.cacheFor(name)
	if err != nil {
		return false, err
	}
	return c.Delete(key), nil
}

// Contains reports whether key is live in the named cache.
func (m *Manager[V]) Contains(name types.CacheName, key string) (bool, error) {
	c, err := m.cacheFor(name)
	if err != nil {
		return false, err
	}
	return c.Contains(key), nil
}

// ClearAll empties every cache.
func (m *Manager[V]) ClearAll() {
	for name, c := range m.caches {
		c.Clear()
		m.logger.Debug("cache cleared", "cache", string(name))
	}
}

// CleanupExpired sweeps expired entries from every cache and returns the
// per-cache removal counts.
func (m *Manager[V]) CleanupExpired() map[types.CacheName]int {
	removed := make(map[types.CacheName]int, len(m.caches))
	for name, c := range m.caches {
		removed[name] = c.CleanupExpired()
	}
	return removed
}

// Statistics returns a per-cache statistics snapshot.
func (m *Manager[V]) Statistics() map[types.CacheName]types.Stats {
	stats := make(map[types.CacheName]types.Stats, len(m.caches))
	for name, c := range m.caches {
		stats[name] = c.Statistics()
	}
	return stats
}

// ResizeCaches independently resizes any subset of the caches. Unknown
// names and non-positive sizes are rejected before any cache is touched.
func (m *Manager[V]) ResizeCaches(sizes map[types.CacheName]int) error {
	for name, size := range sizes {
		if _, ok := m.caches[name]; !ok {
			return errors.Newf(errors.ErrCodeUnknownCache, "unknown cache name %q", name)
		}
		if size <= 0 {
			return errors.Newf(errors.ErrCodeInvalidConfig, "cache %q size must be positive, got %d", name, size)
		}
	}
	for name, size := range sizes {
		m.caches[name].Resize(size)
		m.sizes[name] = size
		m.logger.Debug("cache resized", "cache", string(name), "max_size", size)
	}
	return nil
}

// CreateScoped builds a fully independent manager copying the current
// sizes, optionally overriding any of the TTLs. The scoped manager shares
// no cache instances with this one.
func (m *Manager[V]) CreateScoped(ttlOverrides map[types.CacheName]time.Duration) (*Manager[V], error) {
	for name := range ttlOverrides {
		if _, ok := m.caches[name]; !ok {
			return nil, errors.Newf(errors.ErrCodeUnknownCache, "unknown cache name %q", name)
		}
	}

	ttls := make(map[types.CacheName]time.Duration, len(m.ttls))
	for name, ttl := range m.ttls {
		ttls[name] = ttl
	}
	for name, ttl := range ttlOverrides {
		ttls[name] = ttl
	}

	sizes := make(map[types.CacheName]int, len(m.sizes))
	for name, size := range m.sizes {
		sizes[name] = size
	}

	return newManager(Options{
		BaseTTL:      m.baseTTL,
		Sizes:        sizes,
		TTLOverrides: ttls,
		Clock:        m.clock,
		Logger:       m.logger,
	}, m.factory)
}

// MemoryUsageEstimate returns a heuristic per-cache byte estimate:
// entry count times a fixed per-category object size. Diagnostic only.
func (m *Manager[V]) MemoryUsageEstimate() map[types.CacheName]int64 {
	estimate := make(map[types.CacheName]int64, len(m.caches))
	for name, c := range m.caches {
		estimate[name] = int64(c.Len()) * avgObjectSizes[name]
	}
	return estimate
}

// Process-wide default manager. Lazily constructed on first access and
// explicitly replaceable; call sites that can take a Manager parameter
// should prefer that over this accessor.
var (
	defaultMu      sync.Mutex
	defaultManager *Manager[any]
)

// Default returns the process-wide default manager, constructing it with
// default options on first use.
func Default() *Manager[any] {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultManager == nil {
		m, err := New[any](Options{})
		if err != nil {
			// Default options are statically valid.
			panic(err)
		}
		defaultManager = m
	}
	return defaultManager
}

// SetDefault replaces the process-wide default manager.
func SetDefault(m *Manager[any]) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = m
}
