// Package region resolves the dashboard's area of interest from
// configuration: a plain bounding box, a GeoJSON boundary file, or a
// shapefile. The resolved geometry is what every engine expression filters
// and clips against.
package region

import (
	"github.com/rotisserie/eris"

	"github.com/terralens/landsat-dash/internal/model"
	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// Region is the resolved area of interest: a reference used for cache keying
// plus the geometry sent to the compute engine.
type Region struct {
	ref  model.RegionRef
	geom earthengine.Geometry
}

// Ref returns the cache-keying reference for the region.
func (r *Region) Ref() model.RegionRef { return r.ref }

// Geometry returns the engine geometry for filtering and clipping.
func (r *Region) Geometry() earthengine.Geometry { return r.geom }

// Name returns the configured display name.
func (r *Region) Name() string { return r.ref.Name }

// Bounds returns the WGS84 bounding box (west, south, east, north).
func (r *Region) Bounds() (float64, float64, float64, float64) {
	return r.ref.West, r.ref.South, r.ref.East, r.ref.North
}

// FromBounds builds a region from a WGS84 bounding box.
func FromBounds(name string, west, south, east, north float64) (*Region, error) {
	if west >= east || south >= north {
		return nil, eris.Errorf("region: inverted bounds (%g, %g, %g, %g)", west, south, east, north)
	}

	return &Region{
		ref: model.RegionRef{
			Name:   name,
			West:   west,
			South:  south,
			East:   east,
			North:  north,
			Source: "bbox",
		},
		geom: earthengine.Rectangle(west, south, east, north),
	}, nil
}
