package render

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/terralens/landsat-dash/internal/model"
)

// StatsTable formats yearly region stats as an aligned text table for the
// CLI. Years without a composite keep their row so the record reads as a
// continuous series. Scene counts get digit grouping; years stay plain.
func StatsTable(rows []model.RegionStats) string {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	p.Fprintf(&b, "%-6s %-9s %8s %10s %10s %10s %12s\n",
		"YEAR", "STATUS", "SCENES", "NDVI MEAN", "NDVI MIN", "NDVI MAX", "TEMP MEAN C")
	for _, r := range rows {
		year := strconv.Itoa(r.Year)
		if r.Status != model.StatusReady {
			p.Fprintf(&b, "%-6s %-9s %8d %10s %10s %10s %12s\n",
				year, string(r.Status), r.ImageCount, "-", "-", "-", "-")
			continue
		}
		p.Fprintf(&b, "%-6s %-9s %8d %10.3f %10.3f %10.3f %12.1f\n",
			year, string(r.Status), r.ImageCount, r.NDVIMean, r.NDVIMin, r.NDVIMax, r.TempMeanC)
	}
	return b.String()
}
