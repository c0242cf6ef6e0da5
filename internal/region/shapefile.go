package region

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// readShapefilePolygons loads every polygon record of a shapefile into a
// single MultiPolygon. Coordinates are assumed to be WGS84 degrees, matching
// what the compute engine expects in GeoJSON.
func readShapefilePolygons(path string) (*geom.MultiPolygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		if err := appendPolygon(mp, poly); err != nil {
			skipped++
		}
	}

	if skipped > 0 {
		zap.L().Debug("region: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	if mp.NumPolygons() == 0 {
		return nil, eris.Errorf("region: shapefile %s has no polygon records", path)
	}
	return mp, nil
}

// appendPolygon converts one shapefile polygon record and pushes each of its
// parts as a separate polygon.
func appendPolygon(mp *geom.MultiPolygon, p *shp.Polygon) error {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return eris.New("region: empty polygon record")
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("region: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("region: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}
	return nil
}
