package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiercache/tiercache/pkg/types"
)

func TestNewCollector_NilConfigDefaults(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)

	assert.True(t, c.Enabled())
	assert.NotNil(t, c.Registry())
}

func TestNewCollector_Disabled(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, c.Enabled())
	assert.Nil(t, c.Registry())

	// All operations are inert when disabled.
	c.Update(map[types.CacheName]types.Stats{types.CacheMetadata: {Hits: 1}})
	require.NoError(t, c.Start())
	require.NoError(t, c.Stop(context.Background()))
}

func TestCollector_Update(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "tiercache"})
	require.NoError(t, err)

	c.Update(map[types.CacheName]types.Stats{
		types.CacheMetadata: {
			Size:      3,
			MaxSize:   10,
			Hits:      7,
			Misses:    3,
			Evictions: 2,
			HitRate:   0.7,
			FillRatio: 0.3,
		},
		types.CachePaths: {
			Size:    0,
			MaxSize: 512,
		},
	})

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	values := make(map[string]map[string]float64)
	for _, family := range families {
		byCache := make(map[string]float64)
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "cache" {
					byCache[label.GetValue()] = m.GetGauge().GetValue()
				}
			}
		}
		values[family.GetName()] = byCache
	}

	assert.Equal(t, 7.0, values["tiercache_cache_hits_total"]["metadata"])
	assert.Equal(t, 3.0, values["tiercache_cache_misses_total"]["metadata"])
	assert.Equal(t, 2.0, values["tiercache_cache_evictions_total"]["metadata"])
	assert.Equal(t, 3.0, values["tiercache_cache_entries"]["metadata"])
	assert.Equal(t, 10.0, values["tiercache_cache_max_entries"]["metadata"])
	assert.Equal(t, 0.7, values["tiercache_cache_hit_rate"]["metadata"])
	assert.Equal(t, 0.3, values["tiercache_cache_fill_ratio"]["metadata"])
	assert.Equal(t, 512.0, values["tiercache_cache_max_entries"]["paths"])
}

func TestCollector_UpdateOverwrites(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "tiercache"})
	require.NoError(t, err)

	stats := map[types.CacheName]types.Stats{types.CacheModules: {Hits: 1}}
	c.Update(stats)
	stats[types.CacheModules] = types.Stats{Hits: 5}
	c.Update(stats)

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "tiercache_cache_hits_total" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		assert.Equal(t, 5.0, family.GetMetric()[0].GetGauge().GetValue())
	}
}

func TestCollector_Watch(t *testing.T) {
	c, err := NewCollector(&Config{
		Enabled:   true,
		Namespace: "tiercache",
		Interval:  5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Watch(ctx, func() map[types.CacheName]types.Stats {
			return map[types.CacheName]types.Stats{types.CacheMetadata: {Hits: 9}}
		})
	}()

	require.Eventually(t, func() bool {
		families, err := c.Registry().Gather()
		if err != nil {
			return false
		}
		for _, family := range families {
			if family.GetName() == "tiercache_cache_hits_total" && len(family.GetMetric()) == 1 {
				return family.GetMetric()[0].GetGauge().GetValue() == 9.0
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}
