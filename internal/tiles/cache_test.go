package tiles

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_BasicGetPut(t *testing.T) {
	cache := NewCache(100, time.Hour)

	// Miss on empty cache.
	assert.Nil(t, cache.Get(2020, 10, 512, 256))

	data := []byte("tile-png")
	cache.Put(2020, 10, 512, 256, data)
	got := cache.Get(2020, 10, 512, 256)
	assert.Equal(t, data, got)

	// Different key is still a miss.
	assert.Nil(t, cache.Get(2020, 10, 512, 257))
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := NewCache(100, 50*time.Millisecond)

	cache.Put(2020, 1, 0, 0, []byte("tile"))
	assert.NotNil(t, cache.Get(2020, 1, 0, 0))

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, cache.Get(2020, 1, 0, 0))

	// Expired entry should be removed from the map.
	cache.mu.RLock()
	_, exists := cache.entries[cacheKey(2020, 1, 0, 0)]
	cache.mu.RUnlock()
	assert.False(t, exists)
}

func TestCache_LRUEviction(t *testing.T) {
	cache := NewCache(3, time.Hour)

	cache.Put(2013, 0, 0, 0, []byte("1"))
	cache.Put(2014, 0, 0, 0, []byte("2"))
	cache.Put(2015, 0, 0, 0, []byte("3"))

	// Cache is full. Adding a fourth should evict 2013 (oldest).
	cache.Put(2016, 0, 0, 0, []byte("4"))

	assert.Nil(t, cache.Get(2013, 0, 0, 0))
	assert.NotNil(t, cache.Get(2014, 0, 0, 0))
	assert.NotNil(t, cache.Get(2015, 0, 0, 0))
	assert.NotNil(t, cache.Get(2016, 0, 0, 0))
}

func TestCache_LRUEviction_AccessOrder(t *testing.T) {
	cache := NewCache(3, time.Hour)

	cache.Put(2013, 0, 0, 0, []byte("1"))
	cache.Put(2014, 0, 0, 0, []byte("2"))
	cache.Put(2015, 0, 0, 0, []byte("3"))

	// Access 2013 to move it to back.
	cache.Get(2013, 0, 0, 0)

	// Now 2014 is the oldest. Adding 2016 should evict it.
	cache.Put(2016, 0, 0, 0, []byte("4"))

	assert.NotNil(t, cache.Get(2013, 0, 0, 0))
	assert.Nil(t, cache.Get(2014, 0, 0, 0))
	assert.NotNil(t, cache.Get(2015, 0, 0, 0))
	assert.NotNil(t, cache.Get(2016, 0, 0, 0))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(1000, time.Hour)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cache.Put(2020, n, 0, 0, []byte("data"))
			cache.Get(2020, n, 0, 0)
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.Entries, 1000)
	assert.True(t, stats.Hits+stats.Misses > 0)
}

func TestCache_InvalidateYear(t *testing.T) {
	cache := NewCache(100, time.Hour)

	cache.Put(2020, 1, 0, 0, []byte("a"))
	cache.Put(2020, 2, 0, 0, []byte("b"))
	cache.Put(2021, 1, 0, 0, []byte("c"))

	cache.Invalidate(2020)

	assert.Nil(t, cache.Get(2020, 1, 0, 0))
	assert.Nil(t, cache.Get(2020, 2, 0, 0))
	assert.NotNil(t, cache.Get(2021, 1, 0, 0))

	cache.mu.RLock()
	assert.Len(t, cache.entries, 1)
	cache.mu.RUnlock()
}

func TestCache_Stats(t *testing.T) {
	cache := NewCache(100, time.Hour)

	cache.Put(2020, 0, 0, 0, []byte("1"))
	cache.Put(2021, 0, 0, 0, []byte("2"))

	cache.Get(2020, 0, 0, 0) // hit
	cache.Get(2021, 0, 0, 0) // hit
	cache.Get(2022, 0, 0, 0) // miss

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 100, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 0.6667, stats.HitRate, 0.01)
}

func TestCache_UpdateExistingKey(t *testing.T) {
	cache := NewCache(100, time.Hour)

	cache.Put(2020, 0, 0, 0, []byte("old"))
	cache.Put(2020, 0, 0, 0, []byte("new"))

	got := cache.Get(2020, 0, 0, 0)
	assert.Equal(t, []byte("new"), got)

	cache.mu.RLock()
	assert.Len(t, cache.entries, 1)
	cache.mu.RUnlock()
}
