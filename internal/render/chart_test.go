package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terralens/landsat-dash/internal/model"
)

func testSeries() []model.SeriesPoint {
	return []model.SeriesPoint{
		{Year: 2013, Value: 0.41},
		{Year: 2014, Value: 0.44},
		{Year: 2015, Missing: true},
		{Year: 2016, Value: 0.39},
	}
}

func TestChartPNG_Defaults(t *testing.T) {
	t.Parallel()

	data, err := ChartPNG(testSeries(), ChartOptions{})
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, defaultChartWidth, cfg.Width)
	assert.Equal(t, defaultChartHeight, cfg.Height)
}

func TestChartPNG_CustomSize(t *testing.T) {
	t.Parallel()

	data, err := ChartPNG(testSeries(), ChartOptions{Width: 640, Height: 240, Title: "NDVI, Taiwan"})
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestChartPNG_EmptySeries(t *testing.T) {
	t.Parallel()

	_, err := ChartPNG(nil, ChartOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty series")
}

func TestChartPNG_AllMissing(t *testing.T) {
	t.Parallel()

	points := []model.SeriesPoint{
		{Year: 2013, Missing: true},
		{Year: 2014, Missing: true},
	}
	data, err := ChartPNG(points, ChartOptions{})
	require.NoError(t, err)

	_, err = png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestChartPNG_NegativeValues(t *testing.T) {
	t.Parallel()

	points := []model.SeriesPoint{
		{Year: 2013, Value: -0.1},
		{Year: 2014, Value: 0.5},
	}
	data, err := ChartPNG(points, ChartOptions{})
	require.NoError(t, err)

	_, err = png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestValueRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		points []model.SeriesPoint
		lo     float64
		hi     float64
	}{
		{
			name:   "positive values anchor at zero",
			points: []model.SeriesPoint{{Value: 0.4}, {Value: 0.8}},
			lo:     0,
			hi:     0.88,
		},
		{
			name:   "negative minimum kept",
			points: []model.SeriesPoint{{Value: -0.2}, {Value: 0.8}},
			lo:     -0.2,
			hi:     0.9,
		},
		{
			name:   "all missing falls back to unit range",
			points: []model.SeriesPoint{{Missing: true}},
			lo:     0,
			hi:     1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lo, hi := valueRange(tt.points)
			assert.InDelta(t, tt.lo, lo, 1e-9)
			assert.InDelta(t, tt.hi, hi, 1e-9)
		})
	}
}
