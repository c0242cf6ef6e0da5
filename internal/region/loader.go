package region

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/terralens/landsat-dash/internal/config"
	"github.com/terralens/landsat-dash/internal/model"
	"github.com/terralens/landsat-dash/pkg/earthengine"
)

// Load resolves the configured area of interest. A shapefile boundary wins
// over a GeoJSON boundary, which wins over the plain bounding box.
func Load(cfg config.RegionConfig) (*Region, error) {
	switch {
	case cfg.ShapefilePath != "":
		return fromShapefile(cfg.Name, cfg.ShapefilePath)
	case cfg.GeoJSONPath != "":
		return fromGeoJSON(cfg.Name, cfg.GeoJSONPath)
	default:
		return FromBounds(cfg.Name, cfg.West, cfg.South, cfg.East, cfg.North)
	}
}

func fromShapefile(name, path string) (*Region, error) {
	mp, err := readShapefilePolygons(path)
	if err != nil {
		return nil, err
	}

	sum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}

	return fromGeom(name, mp, "shapefile", sum)
}

func fromGeoJSON(name, path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read GeoJSON %s", path)
	}

	g, err := parseGeoJSON(data)
	if err != nil {
		return nil, eris.Wrapf(err, "region: parse GeoJSON %s", path)
	}

	return fromGeom(name, g, "geojson", checksum(data))
}

// parseGeoJSON accepts a bare geometry, a Feature, or a FeatureCollection
// (first feature wins).
func parseGeoJSON(data []byte) (geom.T, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrap(err, "decode")
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "decode feature collection")
		}
		if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
			return nil, eris.New("feature collection has no geometry")
		}
		return fc.Features[0].Geometry, nil

	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "decode feature")
		}
		if f.Geometry == nil {
			return nil, eris.New("feature has no geometry")
		}
		return f.Geometry, nil

	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(err, "decode geometry")
		}
		return g, nil
	}
}

// fromGeom finishes region construction from any boundary geometry: derives
// the bounding box, re-encodes as GeoJSON, and wraps for the engine.
func fromGeom(name string, g geom.T, source, sum string) (*Region, error) {
	b := g.Bounds()
	if b.IsEmpty() {
		return nil, eris.Errorf("region: %s boundary is empty", source)
	}

	encoded, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "region: encode boundary GeoJSON")
	}
	var obj map[string]any
	if err := json.Unmarshal(encoded, &obj); err != nil {
		return nil, eris.Wrap(err, "region: decode boundary GeoJSON")
	}

	return &Region{
		ref: model.RegionRef{
			Name:     name,
			West:     b.Min(0),
			South:    b.Min(1),
			East:     b.Max(0),
			North:    b.Max(1),
			Source:   source,
			Checksum: sum,
		},
		geom: earthengine.NewGeometry(obj),
	}, nil
}

func fileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "region: checksum %s", path)
	}
	return checksum(data), nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
