package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/model"
	"github.com/terralens/landsat-dash/internal/render"
	"github.com/terralens/landsat-dash/internal/tiles"
	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// metaResponse describes the dashboard's fixed facts: the region, the
// selectable years, and the rendering options.
type metaResponse struct {
	Region    model.RegionRef  `json:"region"`
	Years     []int            `json:"years"`
	Palettes  []string         `json:"palettes"`
	TileCache tiles.CacheStats `json:"tile_cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMeta(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metaResponse{
		Region:    s.svc.Region(),
		Years:     s.svc.Years(),
		Palettes:  render.PaletteNames(),
		TileCache: s.proxy.CacheStats(),
	})
}

func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}

	view := model.CompositeView{
		Year:        year,
		ImageURL:    fmt.Sprintf("/api/composite/%d/thumbnail.png", year),
		GeneratedAt: time.Now().UTC(),
	}

	stats, err := s.svc.Stats(r.Context(), year)
	if err != nil {
		zap.L().Error("dashboard: composite view failed", zap.Int("year", year), zap.Error(err))
		view.Status = model.StatusError
		view.StatusLine = model.StatusLine(year, model.StatusError, 0)
		view.Error = "composite unavailable"
		writeJSON(w, http.StatusOK, view)
		return
	}

	view.Status = stats.Status
	view.ImageCount = stats.ImageCount
	view.StatusLine = model.StatusLine(year, stats.Status, stats.ImageCount)
	view.GeneratedAt = stats.ComputedAt
	if stats.Status == model.StatusReady {
		view.TileTemplate = fmt.Sprintf("/api/tiles/%d/{z}/{x}/{y}.png", year)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}

	data, contentType, err := s.svc.Thumbnail(r.Context(), year)
	if err != nil {
		zap.L().Error("dashboard: thumbnail failed", zap.Int("year", year), zap.Error(err))
		http.Error(w, "thumbnail unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}
	z, x, y, ok := tileCoords(w, r)
	if !ok {
		return
	}

	// Known-empty years render as empty map, not as a wall of tile errors.
	stats, err := s.svc.Stats(r.Context(), year)
	if err == nil && stats.Status == model.StatusNoData {
		s.writePNG(w, s.emptyTile)
		return
	}

	data, _, err := s.proxy.Tile(r.Context(), year, z, x, y)
	if err != nil {
		if eris.Is(err, earthengine.ErrNoData) {
			s.writePNG(w, s.emptyTile)
			return
		}
		zap.L().Error("dashboard: tile failed",
			zap.Int("year", year), zap.Int("z", z), zap.Int("x", x), zap.Int("y", y),
			zap.Error(err))
		http.Error(w, "tile unavailable", http.StatusBadGateway)
		return
	}
	s.writePNG(w, data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	year, ok := s.yearParam(w, r)
	if !ok {
		return
	}

	stats, err := s.svc.Stats(r.Context(), year)
	if err != nil {
		zap.L().Error("dashboard: stats failed", zap.Int("year", year), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	points, err := s.svc.Series(r.Context(), from, to)
	if err != nil {
		zap.L().Error("dashboard: series failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "series unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	from, to, ok := s.rangeParams(w, r)
	if !ok {
		return
	}

	data, err := s.svc.ChartPNG(r.Context(), from, to)
	if err != nil {
		zap.L().Error("dashboard: chart failed", zap.Error(err))
		http.Error(w, "chart unavailable", http.StatusBadGateway)
		return
	}

	// The chart must reflect newly warmed years on the next page load.
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func (s *Server) writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// yearParam parses and bounds-checks the {year} path parameter.
func (s *Server) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return 0, false
	}

	years := s.svc.Years()
	if len(years) == 0 || year < years[0] || year > years[len(years)-1] {
		http.Error(w, "year out of range", http.StatusBadRequest)
		return 0, false
	}
	return year, true
}

// rangeParams reads the optional from/to query parameters, defaulting to the
// full configured year range.
func (s *Server) rangeParams(w http.ResponseWriter, r *http.Request) (from, to int, ok bool) {
	years := s.svc.Years()
	if len(years) == 0 {
		http.Error(w, "no years configured", http.StatusInternalServerError)
		return 0, 0, false
	}
	from, to = years[0], years[len(years)-1]

	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid from year", http.StatusBadRequest)
			return 0, 0, false
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid to year", http.StatusBadRequest)
			return 0, 0, false
		}
	}
	if from > to {
		http.Error(w, "invalid year range", http.StatusBadRequest)
		return 0, 0, false
	}
	return from, to, true
}

func tileCoords(w http.ResponseWriter, r *http.Request) (z, x, y int, ok bool) {
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errZ != nil || errX != nil || errY != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return 0, 0, 0, false
	}
	if z < 0 || z > maxZoom || x < 0 || y < 0 || x >= 1<<z || y >= 1<<z {
		http.Error(w, "tile out of range", http.StatusBadRequest)
		return 0, 0, 0, false
	}
	return z, x, y, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
