package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings required by a command mode. Modes: "serve"
// for the dashboard server, "engine" for one-shot commands that talk to the
// compute engine (compose, stats, export, warm).
func (c *Config) Validate(mode string) error {
	switch mode {
	case "serve", "engine":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	var problems []string

	if c.EE.ServiceAccount == "" && c.EE.ServiceAccountFile == "" {
		problems = append(problems, "ee.service_account is required (set LANDSAT_EE_SERVICE_ACCOUNT or ee.service_account_file)")
	}
	if c.EE.RequestsPerSec <= 0 {
		problems = append(problems, "ee.requests_per_sec must be > 0")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	switch c.Composite.Method {
	case "median", "mosaic", "first":
	default:
		problems = append(problems, "composite.method must be median, mosaic or first")
	}
	if c.Composite.CloudCoverMax < 0 || c.Composite.CloudCoverMax > 100 {
		problems = append(problems, "composite.cloud_cover_max must be between 0 and 100")
	}
	if c.Composite.MinYear > c.Composite.MaxYear {
		problems = append(problems, "composite.min_year must be <= composite.max_year")
	}
	if c.Composite.FillRadius <= 0 {
		problems = append(problems, "composite.fill_radius must be > 0")
	}
	if w := c.Composite.Window; !w.Valid() {
		problems = append(problems, "composite.window has out-of-range or inverted dates")
	}
	if c.Region.West >= c.Region.East || c.Region.South >= c.Region.North {
		problems = append(problems, "region bounds are inverted")
	}
	if c.Warm.Concurrency < 1 || c.Warm.Concurrency > 32 {
		problems = append(problems, "warm.concurrency must be between 1 and 32")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Tiles.CacheCapacity < 1 {
			problems = append(problems, "tiles.cache_capacity must be >= 1")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
