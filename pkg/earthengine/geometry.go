package earthengine

// Geometry is a GeoJSON geometry passed to the engine as a request constant.
// The client does no geometric computation; it only forwards coordinates.
type Geometry struct {
	obj map[string]any
}

// NewGeometry wraps an already-assembled GeoJSON geometry object.
func NewGeometry(geojson map[string]any) Geometry {
	return Geometry{obj: geojson}
}

// Rectangle builds a GeoJSON polygon for the axis-aligned box
// (west, south, east, north) in WGS84 degrees.
func Rectangle(west, south, east, north float64) Geometry {
	ring := [][]float64{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	}
	return Geometry{obj: map[string]any{
		"type":        "Polygon",
		"coordinates": [][][]float64{ring},
	}}
}

// GeoJSON returns the geometry as a GeoJSON object.
func (g Geometry) GeoJSON() map[string]any { return g.obj }

// IsZero reports whether the geometry is unset.
func (g Geometry) IsZero() bool { return g.obj == nil }
