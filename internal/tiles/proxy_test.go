package tiles

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terralens/landsat-dash/pkg/earthengine"
)

func newTestProxy(t *testing.T, engine *mockEngine) (*Proxy, *atomic.Int32) {
	t.Helper()
	var mints atomic.Int32
	sessions := NewSessions(countingMint(&mints), time.Hour)
	return NewProxy(engine, sessions, NewCache(100, time.Hour)), &mints
}

func TestProxy_Tile_FetchesAndCaches(t *testing.T) {
	engine := &mockEngine{}
	proxy, mints := newTestProxy(t, engine)

	data, contentType, err := proxy.Tile(context.Background(), 2020, 9, 428, 221)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), data)
	assert.Equal(t, "image/png", contentType)
	require.Len(t, engine.fetchedURLs, 1)
	assert.Equal(t, "https://tiles.test/m-2020-1/9/428/221", engine.fetchedURLs[0])

	// Second request is served from cache without touching the engine.
	data, _, err = proxy.Tile(context.Background(), 2020, 9, 428, 221)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), data)
	assert.Len(t, engine.fetchedURLs, 1)
	assert.Equal(t, int32(1), mints.Load())
}

func TestProxy_Tile_RefreshOn404(t *testing.T) {
	var fetches atomic.Int32
	engine := &mockEngine{
		fetchFn: func(_ string) ([]byte, error) {
			if fetches.Add(1) == 1 {
				return nil, &earthengine.APIError{
					Op:         "fetch png",
					StatusCode: http.StatusNotFound,
					Body:       "map expired",
				}
			}
			return []byte("fresh"), nil
		},
	}
	proxy, mints := newTestProxy(t, engine)

	data, _, err := proxy.Tile(context.Background(), 2020, 9, 428, 221)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), data)

	// First fetch hit the stale session, the retry used the re-minted one.
	require.Len(t, engine.fetchedURLs, 2)
	assert.Equal(t, "https://tiles.test/m-2020-1/9/428/221", engine.fetchedURLs[0])
	assert.Equal(t, "https://tiles.test/m-2020-2/9/428/221", engine.fetchedURLs[1])
	assert.Equal(t, int32(2), mints.Load())
}

func TestProxy_Tile_NonNotFoundErrorIsWrapped(t *testing.T) {
	engine := &mockEngine{
		fetchFn: func(_ string) ([]byte, error) {
			return nil, &earthengine.APIError{
				Op:         "fetch png",
				StatusCode: http.StatusForbidden,
				Body:       "permission denied",
			}
		},
	}
	proxy, mints := newTestProxy(t, engine)

	_, _, err := proxy.Tile(context.Background(), 2020, 9, 428, 221)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tiles: fetch 9/428/221 for 2020")
	assert.Contains(t, err.Error(), "permission denied")

	// 403 must not trigger a session refresh.
	assert.Equal(t, int32(1), mints.Load())
	assert.Len(t, engine.fetchedURLs, 1)
}

func TestProxy_Tile_MintErrorPropagates(t *testing.T) {
	engine := &mockEngine{}
	sessions := NewSessions(func(_ context.Context, _ int) (earthengine.TileSet, error) {
		return earthengine.TileSet{}, earthengine.ErrNoData
	}, time.Hour)
	proxy := NewProxy(engine, sessions, nil)

	_, _, err := proxy.Tile(context.Background(), 2019, 3, 1, 2)
	require.ErrorIs(t, err, earthengine.ErrNoData)
	assert.Empty(t, engine.fetchedURLs)
}

func TestProxy_Tile_NilCache(t *testing.T) {
	engine := &mockEngine{}
	var mints atomic.Int32
	proxy := NewProxy(engine, NewSessions(countingMint(&mints), time.Hour), nil)

	for range 2 {
		data, _, err := proxy.Tile(context.Background(), 2020, 1, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("tile"), data)
	}

	// Without a cache every request goes to the engine.
	assert.Len(t, engine.fetchedURLs, 2)
	assert.Equal(t, CacheStats{}, proxy.CacheStats())
}

func TestProxy_Invalidate(t *testing.T) {
	engine := &mockEngine{}
	proxy, mints := newTestProxy(t, engine)

	_, _, err := proxy.Tile(context.Background(), 2020, 1, 0, 0)
	require.NoError(t, err)

	proxy.Invalidate(2020)

	_, _, err = proxy.Tile(context.Background(), 2020, 1, 0, 0)
	require.NoError(t, err)

	// Both the cached tile and the session were dropped.
	assert.Len(t, engine.fetchedURLs, 2)
	assert.Equal(t, int32(2), mints.Load())
}

func TestProxy_CacheStats(t *testing.T) {
	engine := &mockEngine{}
	proxy, _ := newTestProxy(t, engine)

	_, _, err := proxy.Tile(context.Background(), 2020, 1, 0, 0)
	require.NoError(t, err)
	_, _, err = proxy.Tile(context.Background(), 2020, 1, 0, 0)
	require.NoError(t, err)

	stats := proxy.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
