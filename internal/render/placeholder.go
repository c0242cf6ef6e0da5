package render

import (
	"bytes"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
)

// PlaceholderPNG draws a flat stand-in for years with no usable scenes. The
// dashboard shows it wherever a composite would appear, so it carries the
// label that explains the empty map.
func PlaceholderPNG(width, height int, label string) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("render: invalid placeholder size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#1f2630")
	dc.Clear()

	dc.SetHexColor("#3a4454")
	dc.SetLineWidth(2)
	dc.DrawRectangle(4, 4, float64(width)-8, float64(height)-8)
	dc.Stroke()

	if label != "" {
		dc.SetHexColor("#9aa7b8")
		dc.DrawStringAnchored(label, float64(width)/2, float64(height)/2, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, eris.Wrap(err, "render: encode placeholder")
	}
	return buf.Bytes(), nil
}

// TransparentPNG returns a fully transparent square tile. Map layers show
// nothing where a year has no composite, instead of erroring per tile.
func TransparentPNG(size int) ([]byte, error) {
	if size <= 0 {
		return nil, eris.Errorf("render: invalid tile size %d", size)
	}

	dc := gg.NewContext(size, size)
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, eris.Wrap(err, "render: encode transparent tile")
	}
	return buf.Bytes(), nil
}
