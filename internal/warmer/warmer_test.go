package warmer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiercache/tiercache/internal/manager"
	"github.com/tiercache/tiercache/pkg/types"
)

func newTestManager(t *testing.T) *manager.Manager[string] {
	t.Helper()
	m, err := manager.New[string](manager.Options{})
	require.NoError(t, err)
	return m
}

func TestWarmer_MixedResults(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CacheMetadata)

	load := func(ctx context.Context, key string) (string, error) {
		if key == "bad" {
			return "", fmt.Errorf("upstream unavailable")
		}
		return "value-" + key, nil
	}

	results := w.Warm(context.Background(), []string{"a", "bad", "b"}, load)

	assert.Equal(t, map[string]bool{"a": true, "bad": false, "b": true}, results)

	v, ok, err := m.Get(types.CacheMetadata, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value-a", v)

	ok, err = m.Contains(types.CacheMetadata, "bad")
	require.NoError(t, err)
	assert.False(t, ok, "failed key must not be cached")
}

func TestWarmer_WarmedKeysSorted(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CachePaths)

	load := func(ctx context.Context, key string) (string, error) {
		return key, nil
	}

	w.Warm(context.Background(), []string{"zebra", "apple", "mango"}, load)

	assert.Equal(t, []string{"apple", "mango", "zebra"}, w.WarmedKeys())
}

func TestWarmer_ClearWarmedTracking(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CachePaths)

	load := func(ctx context.Context, key string) (string, error) {
		return key, nil
	}
	w.Warm(context.Background(), []string{"a", "b"}, load)
	require.Len(t, w.WarmedKeys(), 2)

	w.ClearWarmedTracking()

	assert.Empty(t, w.WarmedKeys())
	ok, err := m.Contains(types.CachePaths, "a")
	require.NoError(t, err)
	assert.True(t, ok, "clearing tracking must not touch cache contents")
}

func TestWarmer_UnknownTargetCache(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CacheName("bogus"))

	load := func(ctx context.Context, key string) (string, error) {
		return key, nil
	}

	results := w.Warm(context.Background(), []string{"a"}, load)

	assert.Equal(t, map[string]bool{"a": false}, results)
	assert.Empty(t, w.WarmedKeys())
}

func TestWarmer_CanceledContext(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CacheMetadata)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	load := func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		return key, nil
	}

	results := w.Warm(ctx, []string{"a", "b", "c"}, load)

	for key, ok := range results {
		assert.False(t, ok, "key %s warmed despite canceled context", key)
	}
	assert.Equal(t, int64(0), calls.Load(), "loader ran under a canceled context")
}

func TestWarmer_ConcurrencyBound(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CacheMetadata, WithConcurrency(2))

	var mu sync.Mutex
	inFlight, peak := 0, 0
	barrier := make(chan struct{})

	load := func(ctx context.Context, key string) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		<-barrier

		mu.Lock()
		inFlight--
		mu.Unlock()
		return key, nil
	}

	done := make(chan map[string]bool)
	go func() {
		done <- w.Warm(context.Background(), []string{"a", "b", "c", "d"}, load)
	}()

	close(barrier)
	results := <-done

	assert.Len(t, results, 4)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2, "concurrency limit exceeded")
}

func TestWarmer_RepeatWarmRefreshes(t *testing.T) {
	m := newTestManager(t)
	w := New(m, types.CacheMetadata)

	version := atomic.Int64{}
	load := func(ctx context.Context, key string) (string, error) {
		return fmt.Sprintf("v%d", version.Load()), nil
	}

	w.Warm(context.Background(), []string{"k"}, load)
	version.Store(1)
	w.Warm(context.Background(), []string{"k"}, load)

	v, ok, err := m.Get(types.CacheMetadata, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v, "rewarming must refresh the stored value")
	assert.Equal(t, []string{"k"}, w.WarmedKeys())
}

func TestNewS3Loader_RequiresBucket(t *testing.T) {
	_, err := NewS3Loader(context.Background(), S3Config{}, nil)
	require.Error(t, err)
}
