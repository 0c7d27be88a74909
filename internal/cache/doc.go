/*
Package cache implements the eviction strategies of the tiercache engine.

Four thread-safe, TTL-aware, size-bounded caches share one entry model and
differ only in how they pick victims when full:

  - LRUCache evicts a batch of max(1, maxSize/4) least-recently-used entries,
    amortizing eviction cost across inserts.
  - LFUCache evicts exactly one entry, the one with the globally lowest
    access count, breaking ties by insertion order.
  - AdaptiveCache tracks a sliding window of access timestamps per key and
    periodically switches between recency and frequency eviction based on
    the coefficient of variation of per-key access frequencies.
  - HierarchicalCache composes a small LRU fast tier with a larger LFU slow
    tier; writes land in the slow tier and values are copied into the fast
    tier once they prove hot (three or more accesses).

An entry is expired once now - createdAt > ttl. Expired entries are never
returned by a read; they are removed lazily on access or eagerly by
CleanupExpired. Every cache is guarded by a single mutex held for the whole
of each operation, so the evict-then-insert sequence in Set is atomic with
respect to the size bound.
*/
package cache
