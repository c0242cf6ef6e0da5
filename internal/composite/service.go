package composite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terralens/landsat-dash/internal/config"
	"github.com/terralens/landsat-dash/internal/model"
	"github.com/terralens/landsat-dash/internal/render"
	"github.com/terralens/landsat-dash/internal/store"
	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// Service serves composite renderings and statistics through the artifact
// store. Engine work happens only on cache misses; everything the dashboard
// shows for a warmed year comes straight from the store.
type Service struct {
	builder *Builder
	store   store.Store
	render  config.RenderConfig
	ttl     time.Duration
}

// NewService creates a Service. ttl bounds how long rendered artifacts are
// served before being recomputed; zero keeps them forever.
func NewService(builder *Builder, st store.Store, render config.RenderConfig, ttl time.Duration) *Service {
	return &Service{builder: builder, store: st, render: render, ttl: ttl}
}

// Region returns the cache-keying reference for the area of interest.
func (s *Service) Region() model.RegionRef { return s.builder.Region().Ref() }

// Years returns the selectable composite years in ascending order.
func (s *Service) Years() []int { return s.builder.Config().Years() }

// params returns the full parameter set for one year.
func (s *Service) params(year int) model.CompositeParams {
	return s.builder.Params(year, s.render)
}

// statsFingerprint returns the year-independent key shared by every stats row.
func (s *Service) statsFingerprint() string {
	return s.builder.Params(0, s.render).StatsFingerprint()
}

// ComputeStats evaluates one year's statistics on the engine without touching
// the store. Years with no matching scenes come back as a no_data row rather
// than an error.
func (s *Service) ComputeStats(ctx context.Context, year int) (model.RegionStats, error) {
	stats, err := s.builder.Stats(ctx, year)
	if err != nil {
		if eris.Is(err, earthengine.ErrNoData) {
			return model.RegionStats{
				Year:       year,
				Status:     model.StatusNoData,
				ComputedAt: time.Now().UTC(),
			}, nil
		}
		return model.RegionStats{}, err
	}
	return stats, nil
}

// Stats returns one year's statistics, computing and persisting them on a
// store miss. no_data rows persist too, so known-empty years never hit the
// engine twice.
func (s *Service) Stats(ctx context.Context, year int) (model.RegionStats, error) {
	fp := s.statsFingerprint()

	cached, err := s.store.GetStats(ctx, year, fp)
	if err != nil {
		zap.L().Warn("composite: stats read failed", zap.Int("year", year), zap.Error(err))
	}
	if cached != nil {
		return *cached, nil
	}

	stats, err := s.ComputeStats(ctx, year)
	if err != nil {
		return model.RegionStats{}, err
	}
	if err := s.store.PutStats(ctx, fp, stats); err != nil {
		zap.L().Warn("composite: stats write failed", zap.Int("year", year), zap.Error(err))
	}
	return stats, nil
}

// Thumbnail returns the rendered thumbnail PNG for one year. Years with no
// cloud-free scenes render as a labeled placeholder, cached like any other
// artifact.
func (s *Service) Thumbnail(ctx context.Context, year int) ([]byte, string, error) {
	fp := s.params(year).Fingerprint()

	if art := s.getArtifact(ctx, year, fp, model.KindThumbnail); art != nil {
		return art.Payload, art.ContentType, nil
	}

	data, err := s.renderThumbnail(ctx, year)
	if err != nil {
		return nil, "", err
	}

	s.putArtifact(ctx, &model.Artifact{
		Year:        year,
		Fingerprint: fp,
		Kind:        model.KindThumbnail,
		ContentType: "image/png",
		Payload:     data,
	})
	return data, "image/png", nil
}

func (s *Service) renderThumbnail(ctx context.Context, year int) ([]byte, error) {
	img, count, err := s.builder.Build(ctx, year)
	if err != nil {
		if eris.Is(err, earthengine.ErrNoData) {
			return render.PlaceholderPNG(s.render.Dimensions, s.render.Dimensions,
				model.StatusLine(year, model.StatusNoData, 0))
		}
		return nil, err
	}

	vis, err := render.Palette(s.render.Palette)
	if err != nil {
		return nil, err
	}

	thumb, err := s.builder.client.Thumbnail(ctx, img, earthengine.ThumbnailSpec{
		Vis:        vis,
		Dimensions: s.render.Dimensions,
		Format:     "png",
	})
	if err != nil {
		return nil, eris.Wrapf(err, "composite: register thumbnail for %d", year)
	}

	data, err := s.builder.client.FetchPNG(ctx, thumb.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "composite: fetch thumbnail for %d", year)
	}

	zap.L().Debug("composite: rendered thumbnail",
		zap.Int("year", year), zap.Int("scenes", count), zap.Int("bytes", len(data)))
	return data, nil
}

// Series returns the NDVI trend over an inclusive year range. Years without a
// ready row in the store are marked missing; nothing is computed on demand.
func (s *Service) Series(ctx context.Context, from, to int) ([]model.SeriesPoint, error) {
	rows, err := s.listStats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return seriesFromRows(from, to, rows), nil
}

// ChartPNG renders the NDVI trend chart for an inclusive year range. The
// bytes are cached under a fingerprint that folds in the stats rows, so a
// cached chart can never outlive the data it was drawn from.
func (s *Service) ChartPNG(ctx context.Context, from, to int) ([]byte, error) {
	rows, err := s.listStats(ctx, from, to)
	if err != nil {
		return nil, err
	}

	fp := chartFingerprint(s.statsFingerprint(), from, to, rows)
	if art := s.getArtifact(ctx, to, fp, model.KindChart); art != nil {
		return art.Payload, nil
	}

	data, err := render.ChartPNG(seriesFromRows(from, to, rows), render.ChartOptions{})
	if err != nil {
		return nil, err
	}

	s.putArtifact(ctx, &model.Artifact{
		Year:        to,
		Fingerprint: fp,
		Kind:        model.KindChart,
		ContentType: "image/png",
		Payload:     data,
	})
	return data, nil
}

// MintTiles registers a tiled map rendering of one year's composite and
// returns its tile-URL template. The tile proxy uses this to mint map
// sessions as they expire.
func (s *Service) MintTiles(ctx context.Context, year int) (earthengine.TileSet, error) {
	img, _, err := s.builder.Build(ctx, year)
	if err != nil {
		return earthengine.TileSet{}, err
	}

	vis, err := render.Palette(s.render.Palette)
	if err != nil {
		return earthengine.TileSet{}, err
	}

	set, err := s.builder.client.MapTiles(ctx, img, vis)
	if err != nil {
		return earthengine.TileSet{}, eris.Wrapf(err, "composite: mint map session for %d", year)
	}
	return *set, nil
}

func (s *Service) listStats(ctx context.Context, from, to int) ([]model.RegionStats, error) {
	if to < from {
		return nil, eris.Errorf("composite: invalid year range %d..%d", from, to)
	}
	rows, err := s.store.ListStats(ctx, store.StatsFilter{
		Fingerprint: s.statsFingerprint(),
		FromYear:    from,
		ToYear:      to,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "composite: list stats %d..%d", from, to)
	}
	return rows, nil
}

// seriesFromRows turns store rows into a dense series over [from, to]. Years
// with no ready row become missing points.
func seriesFromRows(from, to int, rows []model.RegionStats) []model.SeriesPoint {
	byYear := make(map[int]model.RegionStats, len(rows))
	for _, st := range rows {
		byYear[st.Year] = st
	}

	points := make([]model.SeriesPoint, 0, to-from+1)
	for year := from; year <= to; year++ {
		st, ok := byYear[year]
		if !ok || st.Status != model.StatusReady {
			points = append(points, model.SeriesPoint{Year: year, Missing: true})
			continue
		}
		points = append(points, model.SeriesPoint{Year: year, Value: st.NDVIMean})
	}
	return points
}

// chartFingerprint keys a rendered chart by the rows it was drawn from. Any
// change to the underlying stats produces a new key.
func chartFingerprint(statsFP string, from, to int, rows []model.RegionStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%d-%d", statsFP, from, to)
	for _, st := range rows {
		fmt.Fprintf(&b, "/%d:%s:%d", st.Year, st.Status, st.ComputedAt.UnixNano())
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}

// getArtifact is a read-through helper: store errors degrade to a cache miss.
func (s *Service) getArtifact(ctx context.Context, year int, fp string, kind model.ArtifactKind) *model.Artifact {
	art, err := s.store.GetArtifact(ctx, year, fp, kind)
	if err != nil {
		zap.L().Warn("composite: artifact read failed",
			zap.Int("year", year), zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	return art
}

// putArtifact stores a rendered artifact, logging instead of failing: the
// bytes are already in hand and can be served either way.
func (s *Service) putArtifact(ctx context.Context, a *model.Artifact) {
	if err := s.store.PutArtifact(ctx, a, s.ttl); err != nil {
		zap.L().Warn("composite: artifact write failed",
			zap.Int("year", a.Year), zap.String("kind", string(a.Kind)), zap.Error(err))
	}
}
