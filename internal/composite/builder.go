package composite

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/terralens/landsat-dash/internal/config"
	"github.com/terralens/landsat-dash/internal/model"
	"github.com/terralens/landsat-dash/internal/region"
	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// opticalBands are the reflectance bands carried through the composite.
var opticalBands = []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1, BandSWIR2}

// Builder assembles annual composite expressions for one region.
type Builder struct {
	client earthengine.Client
	region *region.Region
	cfg    config.CompositeConfig
}

// NewBuilder creates a Builder over one region.
func NewBuilder(client earthengine.Client, reg *region.Region, cfg config.CompositeConfig) *Builder {
	return &Builder{client: client, region: reg, cfg: cfg}
}

// Region returns the area of interest the builder composites over.
func (b *Builder) Region() *region.Region { return b.region }

// Config returns the composite settings.
func (b *Builder) Config() config.CompositeConfig { return b.cfg }

// Params returns the cache-keying parameter set for one year, completed with
// the given render settings.
func (b *Builder) Params(year int, render config.RenderConfig) model.CompositeParams {
	return model.CompositeParams{
		Year:           year,
		Collection:     b.cfg.Collection,
		Method:         b.cfg.Method,
		CloudCoverMax:  b.cfg.CloudCoverMax,
		QAMask:         b.cfg.QAMask,
		FillRadius:     b.cfg.FillRadius,
		FillIterations: b.cfg.FillIterations,
		StatsScale:     b.cfg.StatsScale,
		Window:         b.cfg.Window.String(),
		Dimensions:     render.Dimensions,
		Palette:        render.Palette,
		Region:         b.region.Ref(),
	}
}

// filtered returns the collection for one year: bounds, the configured date
// window, and scene-level cloud cover applied, before any per-pixel work.
// A threshold of 100 admits every scene, so the filter is skipped entirely.
func (b *Builder) filtered(year int) earthengine.Collection {
	start, end := b.cfg.Window.Span(year)
	coll := earthengine.ImageCollection(b.cfg.Collection).
		FilterBounds(b.region.Geometry()).
		FilterDate(start, end)
	if b.cfg.CloudCoverMax < 100 {
		coll = coll.FilterMetadata("CLOUD_COVER", "less_than", b.cfg.CloudCoverMax)
	}
	return coll
}

// prepare rescales DNs to physical units on a single scene and, unless the
// QA mask is disabled, drops cloud and shadow pixels. Runs inside
// collection.map on the engine.
func (b *Builder) prepare(img earthengine.Image) earthengine.Image {
	optical := img.Select(opticalBands...).
		Multiply(OpticalScale).
		Add(OpticalOffset)
	thermal := img.Select(BandThermal).
		Multiply(ThermalScale).
		Add(ThermalOffset)

	scene := optical.AddBands(thermal, true)
	if !b.cfg.QAMask {
		return scene
	}

	clear := img.Select(BandQA).BitwiseAnd(CloudShadowBits).Eq(0)
	return scene.UpdateMask(clear)
}

// withNDVI appends the NDVI band computed from NIR and red reflectance.
func withNDVI(img earthengine.Image) earthengine.Image {
	ndvi := img.NormalizedDifference(BandNIR, BandRed).Rename(BandNDVI)
	return img.AddBands(ndvi, true)
}

// fillHoles patches pixels masked in every scene of the year with a focal
// mean of their neighborhood, keeping original values where they exist.
func (b *Builder) fillHoles(img earthengine.Image) earthengine.Image {
	if b.cfg.FillIterations <= 0 {
		return img
	}
	return img.FocalMean(b.cfg.FillRadius, b.cfg.FillIterations).Blend(img)
}

// Composite builds the full expression for one year's composite: filtered
// scenes, per-scene masking and rescaling, reduction to a single image, NDVI,
// hole filling, and a clip to the region boundary.
func (b *Builder) Composite(year int) earthengine.Image {
	scenes := b.filtered(year)

	var img earthengine.Image
	switch b.cfg.Method {
	case "mosaic":
		// Most cloudy scenes first, so the clearest pixels paint last.
		img = scenes.Sort("CLOUD_COVER", false).Map(b.prepare).Mosaic()
	case "first":
		img = scenes.Sort("CLOUD_COVER", true).Map(b.prepare).First()
	default:
		img = scenes.Map(b.prepare).Median()
	}

	return b.fillHoles(withNDVI(img)).Clip(b.region.Geometry())
}

// Count evaluates how many scenes match the year's filters.
func (b *Builder) Count(ctx context.Context, year int) (int, error) {
	n, err := b.client.ComputeNumber(ctx, b.filtered(year).Size())
	if err != nil {
		return 0, eris.Wrapf(err, "composite: count scenes for %d", year)
	}
	return int(n), nil
}

// Build returns the composite expression for a year along with the matched
// scene count. Years with no matching scenes return ErrNoData.
func (b *Builder) Build(ctx context.Context, year int) (earthengine.Image, int, error) {
	count, err := b.Count(ctx, year)
	if err != nil {
		return earthengine.Image{}, 0, err
	}
	if count == 0 {
		return earthengine.Image{}, 0, earthengine.ErrNoData
	}
	return b.Composite(year), count, nil
}

// Stats computes region-reduced statistics for one year's composite: mean
// NDVI and surface temperature, plus the NDVI extremes.
func (b *Builder) Stats(ctx context.Context, year int) (model.RegionStats, error) {
	img, count, err := b.Build(ctx, year)
	if err != nil {
		return model.RegionStats{}, err
	}

	geom := b.region.Geometry()

	means, err := b.client.ComputeDictionary(ctx,
		img.Select(BandNDVI, BandThermal).ReduceRegion(earthengine.MeanReducer(), geom, b.cfg.StatsScale))
	if err != nil {
		return model.RegionStats{}, eris.Wrapf(err, "composite: reduce means for %d", year)
	}

	extremes, err := b.client.ComputeDictionary(ctx,
		img.Select(BandNDVI).ReduceRegion(earthengine.MinMaxReducer(), geom, b.cfg.StatsScale))
	if err != nil {
		return model.RegionStats{}, eris.Wrapf(err, "composite: reduce extremes for %d", year)
	}

	return model.RegionStats{
		Year:       year,
		Status:     model.StatusReady,
		ImageCount: count,
		NDVIMean:   means[BandNDVI],
		NDVIMin:    extremes[BandNDVI+"_min"],
		NDVIMax:    extremes[BandNDVI+"_max"],
		TempMeanC:  KelvinToCelsius(means[BandThermal]),
		ComputedAt: time.Now().UTC(),
	}, nil
}
