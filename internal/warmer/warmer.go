// Package warmer drives bulk pre-population of a manager's caches from an
// externally supplied key list.
package warmer

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tiercache/tiercache/internal/manager"
	"github.com/tiercache/tiercache/pkg/types"
)

// defaultConcurrency bounds how many loader calls run at once.
const defaultConcurrency = 4

// Loader produces the value for one key. It runs outside any cache lock
// and may be slow; cancellation and retries are the caller's concern.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Option configures a Warmer.
type Option func(*settings)

type settings struct {
	concurrency int
	logger      *slog.Logger
}

// WithConcurrency bounds the number of concurrent loader calls.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the warmer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Warmer pre-populates one of a manager's named caches. The warmed-key set
// is observational bookkeeping only; it is never authoritative over cache
// contents.
type Warmer[V any] struct {
	mgr    *manager.Manager[V]
	target types.CacheName

	mu     sync.Mutex
	warmed map[string]struct{}

	concurrency int
	logger      *slog.Logger
}

// New creates a warmer targeting the named cache of mgr.
func New[V any](mgr *manager.Manager[V], target types.CacheName, opts ...Option) *Warmer[V] {
	s := settings{
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Warmer[V]{
		mgr:         mgr,
		target:      target,
		warmed:      make(map[string]struct{}),
		concurrency: s.concurrency,
		logger:      s.logger,
	}
}

// Warm loads and stores a value for each key, reporting per-key success.
// Individual loader failures are recorded and logged, never propagated: a
// single bad key cannot abort the batch.
func (w *Warmer[V]) Warm(ctx context.Context, keys []string, load Loader[V]) map[string]bool {
	results := make(map[string]bool, len(keys))
	var resultsMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, key := range keys {
		key := key
		g.Go(func() error {
			ok := w.warmOne(ctx, key, load)
			resultsMu.Lock()
			results[key] = ok
			resultsMu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are per-key results.
	_ = g.Wait()

	return results
}

func (w *Warmer[V]) warmOne(ctx context.Context, key string, load Loader[V]) bool {
	if ctx.Err() != nil {
		return false
	}

	value, err := load(ctx, key)
	if err != nil {
		w.logger.Warn("warm load failed", "cache", string(w.target), "key", key, "error", err)
		return false
	}

	if err := w.mgr.Set(w.target, key, value); err != nil {
		w.logger.Warn("warm store failed", "cache", string(w.target), "key", key, "error", err)
		return false
	}

	w.mu.Lock()
	w.warmed[key] = struct{}{}
	w.mu.Unlock()
	return true
}

// WarmedKeys returns a sorted snapshot of the keys warmed so far.
func (w *Warmer[V]) WarmedKeys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	keys := make([]string, 0, len(w.warmed))
	for key := range w.warmed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ClearWarmedTracking forgets which keys have been warmed. Cache contents
// are unaffected.
func (w *Warmer[V]) ClearWarmedTracking() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warmed = make(map[string]struct{})
}
