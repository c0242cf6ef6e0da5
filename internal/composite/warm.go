package composite

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terralens/landsat-dash/internal/model"
)

// WarmResult summarizes one bulk precomputation run.
type WarmResult struct {
	Ready     int
	NoData    int
	Failed    int
	Persisted int64
	Purged    int
}

// Warm precomputes stats and thumbnails for the given years, persisting all
// stats rows in one batch. A failing year is logged and skipped so one bad
// year cannot sink the run. onYear, when non-nil, is called as each year
// finishes.
func (s *Service) Warm(ctx context.Context, years []int, concurrency int, onYear func(model.RegionStats)) (WarmResult, error) {
	var result WarmResult

	purged, err := s.store.DeleteExpiredArtifacts(ctx)
	if err != nil {
		zap.L().Warn("composite: purge expired artifacts failed", zap.Error(err))
	}
	result.Purged = purged

	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	rows := make([]model.RegionStats, 0, len(years))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, year := range years {
		g.Go(func() error {
			stats, err := s.ComputeStats(gCtx, year)
			if err != nil {
				zap.L().Warn("composite: warm year failed", zap.Int("year", year), zap.Error(err))
				stats = model.RegionStats{Year: year, Status: model.StatusError, ComputedAt: time.Now().UTC()}
			} else if _, _, thumbErr := s.Thumbnail(gCtx, year); thumbErr != nil {
				zap.L().Warn("composite: warm thumbnail failed", zap.Int("year", year), zap.Error(thumbErr))
			}

			mu.Lock()
			switch stats.Status {
			case model.StatusReady:
				result.Ready++
				rows = append(rows, stats)
			case model.StatusNoData:
				result.NoData++
				rows = append(rows, stats)
			default:
				// Error rows are reported but never persisted, so a transient
				// engine failure cannot shadow a later successful compute.
				result.Failed++
			}
			mu.Unlock()

			if onYear != nil {
				onYear(stats)
			}
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return result, eris.Wrap(ctx.Err(), "composite: warm canceled")
	}

	if len(rows) > 0 {
		n, err := s.store.PutStatsBatch(ctx, s.statsFingerprint(), rows)
		if err != nil {
			return result, eris.Wrap(err, "composite: persist warm batch")
		}
		result.Persisted = n
	}

	zap.L().Info("composite: warm complete",
		zap.Int("ready", result.Ready),
		zap.Int("no_data", result.NoData),
		zap.Int("failed", result.Failed),
		zap.Int64("persisted", result.Persisted),
		zap.Int("purged_artifacts", result.Purged))
	return result, nil
}
