package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CompositeStatus represents the outcome of building one annual composite.
type CompositeStatus string

const (
	StatusReady  CompositeStatus = "ready"
	StatusNoData CompositeStatus = "no_data"
	StatusError  CompositeStatus = "error"
)

// ArtifactKind identifies what a cached artifact holds.
type ArtifactKind string

const (
	KindThumbnail ArtifactKind = "thumbnail"
	KindChart     ArtifactKind = "chart"
)

// RegionRef identifies the area of interest a composite was built over.
// Checksum is set when the boundary came from a shapefile or GeoJSON file so
// that cache entries are invalidated when the file changes.
type RegionRef struct {
	Name     string  `json:"name"`
	West     float64 `json:"west"`
	South    float64 `json:"south"`
	East     float64 `json:"east"`
	North    float64 `json:"north"`
	Source   string  `json:"source"` // bbox, shapefile, geojson
	Checksum string  `json:"checksum,omitempty"`
}

// CompositeParams is the full parameter set that determines a composite and
// its renderings. Two requests with equal params are interchangeable.
type CompositeParams struct {
	Year           int       `json:"year"`
	Collection     string    `json:"collection"`
	Method         string    `json:"method"`
	CloudCoverMax  int       `json:"cloud_cover_max"`
	QAMask         bool      `json:"qa_mask"`
	FillRadius     float64   `json:"fill_radius"`
	FillIterations int       `json:"fill_iterations"`
	StatsScale     float64   `json:"stats_scale"`
	Window         string    `json:"window"` // MM-DD..MM-DD within the year
	Dimensions     int       `json:"dimensions"`
	Palette        string    `json:"palette"`
	Region         RegionRef `json:"region"`
}

// Fingerprint returns a deterministic ID for the parameter set, used as the
// artifact cache key. Struct fields marshal in declaration order, so equal
// params always produce equal fingerprints.
func (p CompositeParams) Fingerprint() string {
	b, _ := json.Marshal(p)
	return uuid.NewSHA1(uuid.NameSpaceOID, b).String()
}

// StatsFingerprint returns the fingerprint of the parameters that determine
// region statistics. The year and the render settings are excluded: numbers
// do not depend on how the composite is drawn, and rows for every year must
// share one key so range queries can find them.
func (p CompositeParams) StatsFingerprint() string {
	q := p
	q.Year = 0
	q.Dimensions = 0
	q.Palette = ""
	return q.Fingerprint()
}

// CompositeView is the dashboard-facing summary of one annual composite.
type CompositeView struct {
	Year         int             `json:"year"`
	Status       CompositeStatus `json:"status"`
	StatusLine   string          `json:"status_line"`
	ImageCount   int             `json:"image_count"`
	ImageURL     string          `json:"image_url"`
	TileTemplate string          `json:"tile_template,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Error        string          `json:"error,omitempty"`
}

// StatusLine renders the one-line summary shown under the map. It always
// names the year so a user can tell stale panels from current ones.
func StatusLine(year int, status CompositeStatus, imageCount int) string {
	switch status {
	case StatusReady:
		return fmt.Sprintf("%d: composite from %d scenes", year, imageCount)
	case StatusNoData:
		return fmt.Sprintf("%d: no cloud-free scenes matched", year)
	default:
		return fmt.Sprintf("%d: composite unavailable", year)
	}
}

// RegionStats holds region-reduced statistics for one annual composite.
type RegionStats struct {
	Year       int             `json:"year"`
	Status     CompositeStatus `json:"status"`
	ImageCount int             `json:"image_count"`
	NDVIMean   float64         `json:"ndvi_mean"`
	NDVIMin    float64         `json:"ndvi_min"`
	NDVIMax    float64         `json:"ndvi_max"`
	TempMeanC  float64         `json:"temp_mean_c"`
	ComputedAt time.Time       `json:"computed_at"`
}

// StatsRow is the flat export form of RegionStats for CSV and XLSX output.
type StatsRow struct {
	Year       int     `csv:"year"`
	Status     string  `csv:"status"`
	ImageCount int     `csv:"image_count"`
	NDVIMean   float64 `csv:"ndvi_mean"`
	NDVIMin    float64 `csv:"ndvi_min"`
	NDVIMax    float64 `csv:"ndvi_max"`
	TempMeanC  float64 `csv:"temp_mean_c"`
}

// Row flattens stats for export.
func (s RegionStats) Row() StatsRow {
	return StatsRow{
		Year:       s.Year,
		Status:     string(s.Status),
		ImageCount: s.ImageCount,
		NDVIMean:   s.NDVIMean,
		NDVIMin:    s.NDVIMin,
		NDVIMax:    s.NDVIMax,
		TempMeanC:  s.TempMeanC,
	}
}

// SeriesPoint is one year of a charted metric. Missing marks years where no
// cloud-free scenes matched, so charts can show the gap instead of a zero.
type SeriesPoint struct {
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

// Artifact is a cached render or computation, keyed by year, parameter
// fingerprint, and kind.
type Artifact struct {
	ID          string       `json:"id"`
	Year        int          `json:"year"`
	Fingerprint string       `json:"fingerprint"`
	Kind        ArtifactKind `json:"kind"`
	ContentType string       `json:"content_type"`
	Payload     []byte       `json:"payload"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Expired reports whether the artifact is past its TTL at the given time.
func (a Artifact) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}
