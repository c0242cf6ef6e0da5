package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"

	"github.com/terralens/landsat-dash/internal/model"
)

const (
	defaultChartWidth  = 900
	defaultChartHeight = 360

	yTicks = 4
)

// ChartOptions controls the rendered chart. Zero values fall back to defaults.
type ChartOptions struct {
	Width  int
	Height int
	Title  string
}

// ChartPNG draws a bar chart of one metric across years. Points flagged
// Missing render as open stubs at the baseline so gaps in the record stay
// visible instead of collapsing to zero.
func ChartPNG(points []model.SeriesPoint, opts ChartOptions) ([]byte, error) {
	if len(points) == 0 {
		return nil, eris.New("render: empty series")
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultChartWidth
	}
	if height <= 0 {
		height = defaultChartHeight
	}
	title := opts.Title
	if title == "" {
		title = "Mean NDVI by year"
	}

	lo, hi := valueRange(points)

	const (
		marginLeft   = 62.0
		marginRight  = 18.0
		marginTop    = 30.0
		marginBottom = 40.0
	)
	plotW := float64(width) - marginLeft - marginRight
	plotH := float64(height) - marginTop - marginBottom

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	dc.SetHexColor("#2d3748")
	dc.DrawStringAnchored(title, float64(width)/2, marginTop/2, 0.5, 0.5)

	yAt := func(v float64) float64 {
		frac := (v - lo) / (hi - lo)
		return marginTop + plotH*(1-frac)
	}

	dc.SetLineWidth(1)
	for i := 0; i <= yTicks; i++ {
		v := lo + (hi-lo)*float64(i)/yTicks
		y := yAt(v)
		dc.SetHexColor("#e2e8f0")
		dc.DrawLine(marginLeft, y, float64(width)-marginRight, y)
		dc.Stroke()
		dc.SetHexColor("#718096")
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), marginLeft-8, y, 1, 0.5)
	}

	slot := plotW / float64(len(points))
	barW := slot * 0.6
	baseline := yAt(math.Max(lo, 0))
	for i, pt := range points {
		x := marginLeft + slot*float64(i) + (slot-barW)/2
		if pt.Missing {
			// Open stub marks a year with no composite.
			dc.SetHexColor("#a0aec0")
			dc.SetLineWidth(1)
			dc.DrawRectangle(x, baseline-6, barW, 6)
			dc.Stroke()
		} else {
			top := yAt(pt.Value)
			y := math.Min(top, baseline)
			h := math.Abs(baseline - top)
			if h < 1 {
				h = 1
			}
			dc.SetHexColor("#74a901")
			dc.DrawRectangle(x, y, barW, h)
			dc.Fill()
		}
		dc.SetHexColor("#4a5568")
		dc.DrawStringAnchored(strconv.Itoa(pt.Year), x+barW/2, float64(height)-marginBottom/2, 0.5, 0.5)
	}

	dc.SetHexColor("#cbd5e0")
	dc.SetLineWidth(1.5)
	dc.DrawLine(marginLeft, marginTop, marginLeft, float64(height)-marginBottom)
	dc.DrawLine(marginLeft, float64(height)-marginBottom, float64(width)-marginRight, float64(height)-marginBottom)
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, eris.Wrap(err, "render: encode chart")
	}
	return buf.Bytes(), nil
}

// valueRange picks the chart's vertical extent from the present points,
// anchoring at zero and padding the top so the tallest bar never touches the
// title row. A series with no present points gets a unit range.
func valueRange(points []model.SeriesPoint) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, pt := range points {
		if pt.Missing {
			continue
		}
		lo = math.Min(lo, pt.Value)
		hi = math.Max(hi, pt.Value)
	}
	if lo > hi {
		return 0, 1
	}
	if lo > 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi + (hi-lo)*0.1
}
