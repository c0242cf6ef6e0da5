package tiles

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// Proxy fetches composite tiles from the engine through the authenticated
// client, backed by the session registry and the LRU cache. Browsers never
// talk to the engine directly; credentials stay server-side.
type Proxy struct {
	client   earthengine.Client
	sessions *Sessions
	cache    *Cache
}

// NewProxy creates a tile proxy. cache may be nil to disable caching.
func NewProxy(client earthengine.Client, sessions *Sessions, cache *Cache) *Proxy {
	return &Proxy{client: client, sessions: sessions, cache: cache}
}

// Tile returns the PNG bytes and content type for one slippy-map tile.
func (p *Proxy) Tile(ctx context.Context, year, z, x, y int) ([]byte, string, error) {
	if p.cache != nil {
		if cached := p.cache.Get(year, z, x, y); cached != nil {
			return cached, "image/png", nil
		}
	}

	set, err := p.sessions.Get(ctx, year)
	if err != nil {
		return nil, "", err
	}

	data, err := p.client.FetchPNG(ctx, set.TileURL(z, x, y))
	if err != nil {
		// An expired map session surfaces as 404; mint a new one and retry once.
		var apiErr *earthengine.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			if set, err = p.sessions.Refresh(ctx, year); err == nil {
				data, err = p.client.FetchPNG(ctx, set.TileURL(z, x, y))
			}
		}
		if err != nil {
			return nil, "", eris.Wrapf(err, "tiles: fetch %d/%d/%d for %d", z, x, y, year)
		}
	}

	if p.cache != nil {
		p.cache.Put(year, z, x, y, data)
	}

	zap.L().Debug("tiles: fetched tile",
		zap.Int("year", year), zap.Int("z", z), zap.Int("x", x), zap.Int("y", y),
		zap.Int("bytes", len(data)))
	return data, "image/png", nil
}

// Invalidate drops the session and cached tiles for a year.
func (p *Proxy) Invalidate(year int) {
	p.sessions.Drop(year)
	if p.cache != nil {
		p.cache.Invalidate(year)
	}
}

// CacheStats reports tile cache performance.
func (p *Proxy) CacheStats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}
