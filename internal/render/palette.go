// Package render turns composites into things a browser can show: visualization
// palettes for thumbnails and tiles, a placeholder for years with no data, the
// NDVI trend chart, and the stats table printed by the CLI.
package render

import (
	"embed"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/terralens/landsat-dash/pkg/earthengine"
)

//go:embed palettes.yaml
var paletteFS embed.FS

// paletteSpec mirrors one entry in palettes.yaml.
type paletteSpec struct {
	Bands   []string  `yaml:"bands"`
	Min     []float64 `yaml:"min"`
	Max     []float64 `yaml:"max"`
	Palette []string  `yaml:"palette"`
}

var (
	paletteOnce sync.Once
	paletteMap  map[string]paletteSpec
	paletteErr  error
)

func loadPalettes() (map[string]paletteSpec, error) {
	paletteOnce.Do(func() {
		data, err := paletteFS.ReadFile("palettes.yaml")
		if err != nil {
			paletteErr = eris.Wrap(err, "render: read palettes")
			return
		}
		out := make(map[string]paletteSpec)
		if err := yaml.Unmarshal(data, &out); err != nil {
			paletteErr = eris.Wrap(err, "render: parse palettes")
			return
		}
		paletteMap = out
	})
	return paletteMap, paletteErr
}

// Palette resolves a named visualization into engine parameters.
// Names are matched case-insensitively.
func Palette(name string) (earthengine.VisParams, error) {
	specs, err := loadPalettes()
	if err != nil {
		return earthengine.VisParams{}, err
	}
	spec, ok := specs[strings.ToLower(name)]
	if !ok {
		return earthengine.VisParams{}, eris.Errorf(
			"render: unknown palette %q (have: %s)", name, strings.Join(PaletteNames(), ", "))
	}
	return earthengine.VisParams{
		Bands:   spec.Bands,
		Min:     spec.Min,
		Max:     spec.Max,
		Palette: spec.Palette,
	}, nil
}

// PaletteNames returns the available palette names in sorted order.
func PaletteNames() []string {
	specs, err := loadPalettes()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
