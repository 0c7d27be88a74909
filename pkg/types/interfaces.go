package types

import "time"

// Cache is the interface implemented by every eviction strategy.
//
// Absent and expired keys are normal control flow: Get and Contains report
// them through the boolean return, never through an error.
type Cache[V any] interface {
	// Get returns the value for key if present and not expired.
	// A hit updates access bookkeeping; a miss (absent or expired) does not.
	Get(key string) (V, bool)

	// Set stores value under key with the cache's default TTL.
	Set(key string, value V)

	// SetWithTTL stores value under key with an explicit TTL.
	// A non-positive ttl falls back to the cache's default.
	SetWithTTL(key string, value V, ttl time.Duration)

	// Delete removes key and reports whether it was present.
	Delete(key string) bool

	// Contains reports whether key is present and not expired,
	// without updating access statistics.
	Contains(key string) bool

	// Keys returns all non-expired keys.
	Keys() []string

	// Len returns the number of stored entries, expired or not.
	Len() int

	// Clear removes all entries and zeroes statistics.
	Clear()

	// CleanupExpired eagerly removes expired entries and returns the count.
	CleanupExpired() int

	// Resize updates the size bound, evicting excess entries if needed.
	Resize(maxSize int)

	// Statistics returns a snapshot of cache statistics.
	Statistics() Stats
}

// ExtendedStatsProvider is implemented by caches that track extended
// frequency-eviction statistics.
type ExtendedStatsProvider interface {
	ExtendedStatistics() ExtendedStats
}

// StrategyReporter is implemented by caches whose eviction strategy can
// change at runtime.
type StrategyReporter interface {
	StrategyInfo() StrategyInfo
}

// Reevaluator is implemented by caches that support a forced strategy
// re-evaluation. It returns the strategy before and after the evaluation
// and whether a switch occurred.
type Reevaluator interface {
	Reevaluate() (old, current Strategy, changed bool)
}

// TierStatsProvider is implemented by caches composed of multiple tiers.
type TierStatsProvider interface {
	TierStatistics() HierarchicalStats
}
