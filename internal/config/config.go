package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	EE        EEConfig        `yaml:"ee" mapstructure:"ee"`
	Region    RegionConfig    `yaml:"region" mapstructure:"region"`
	Composite CompositeConfig `yaml:"composite" mapstructure:"composite"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Tiles     TilesConfig     `yaml:"tiles" mapstructure:"tiles"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Warm      WarmConfig      `yaml:"warm" mapstructure:"warm"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the artifact cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EEConfig holds the remote compute engine credentials and endpoint.
type EEConfig struct {
	// ServiceAccount is the full service-account key JSON, normally injected
	// through the LANDSAT_EE_SERVICE_ACCOUNT environment variable.
	ServiceAccount string `yaml:"service_account" mapstructure:"service_account"`
	// ServiceAccountFile points at a key JSON on disk, consulted when
	// ServiceAccount is empty.
	ServiceAccountFile string  `yaml:"service_account_file" mapstructure:"service_account_file"`
	Project            string  `yaml:"project" mapstructure:"project"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec     float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// RegionConfig describes the area of interest. The bounding box is used
// directly unless a shapefile or GeoJSON boundary is configured.
type RegionConfig struct {
	Name          string  `yaml:"name" mapstructure:"name"`
	West          float64 `yaml:"west" mapstructure:"west"`
	South         float64 `yaml:"south" mapstructure:"south"`
	East          float64 `yaml:"east" mapstructure:"east"`
	North         float64 `yaml:"north" mapstructure:"north"`
	ShapefilePath string  `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	GeoJSONPath   string  `yaml:"geojson_path" mapstructure:"geojson_path"`
}

// CompositeConfig configures annual composite assembly.
type CompositeConfig struct {
	Collection     string       `yaml:"collection" mapstructure:"collection"`
	Method         string       `yaml:"method" mapstructure:"method"`
	CloudCoverMax  int          `yaml:"cloud_cover_max" mapstructure:"cloud_cover_max"`
	QAMask         bool         `yaml:"qa_mask" mapstructure:"qa_mask"`
	FillRadius     float64      `yaml:"fill_radius" mapstructure:"fill_radius"`
	FillIterations int          `yaml:"fill_iterations" mapstructure:"fill_iterations"`
	MinYear        int          `yaml:"min_year" mapstructure:"min_year"`
	MaxYear        int          `yaml:"max_year" mapstructure:"max_year"`
	StatsScale     float64      `yaml:"stats_scale" mapstructure:"stats_scale"`
	Window         WindowConfig `yaml:"window" mapstructure:"window"`
}

// WindowConfig narrows the date span composited within each year, for
// example a growing season. The zero value means the whole year.
type WindowConfig struct {
	StartMonth int `yaml:"start_month" mapstructure:"start_month"`
	StartDay   int `yaml:"start_day" mapstructure:"start_day"`
	EndMonth   int `yaml:"end_month" mapstructure:"end_month"`
	EndDay     int `yaml:"end_day" mapstructure:"end_day"`
}

// zero reports whether no window was configured.
func (w WindowConfig) zero() bool {
	return w.StartMonth == 0 && w.StartDay == 0 && w.EndMonth == 0 && w.EndDay == 0
}

// Span returns the window's [start, end) dates within the given year. The
// configured end day is inclusive; a zero window spans the whole year.
func (w WindowConfig) Span(year int) (time.Time, time.Time) {
	if w.zero() {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(year, time.Month(w.StartMonth), w.StartDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(w.EndMonth), w.EndDay, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return start, end
}

// String renders the window for cache keys and logs.
func (w WindowConfig) String() string {
	if w.zero() {
		return "01-01..12-31"
	}
	return fmt.Sprintf("%02d-%02d..%02d-%02d", w.StartMonth, w.StartDay, w.EndMonth, w.EndDay)
}

// Valid reports whether the window's dates are in range and ordered.
func (w WindowConfig) Valid() bool {
	if w.zero() {
		return true
	}
	for _, m := range []int{w.StartMonth, w.EndMonth} {
		if m < 1 || m > 12 {
			return false
		}
	}
	for _, d := range []int{w.StartDay, w.EndDay} {
		if d < 1 || d > 31 {
			return false
		}
	}
	return w.StartMonth*100+w.StartDay <= w.EndMonth*100+w.EndDay
}

// RenderConfig configures rasterization of composites.
type RenderConfig struct {
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
	Palette    string `yaml:"palette" mapstructure:"palette"`
}

// TilesConfig configures the map tile proxy.
type TilesConfig struct {
	CacheCapacity  int `yaml:"cache_capacity" mapstructure:"cache_capacity"`
	SessionTTLMins int `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
}

// CacheConfig configures persistence of rendered artifacts.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// WarmConfig configures bulk precomputation.
type WarmConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LANDSAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "landsat-dash.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("ee.base_url", "https://earthengine.googleapis.com")
	v.SetDefault("ee.requests_per_sec", 5.0)
	v.SetDefault("region.name", "Taiwan")
	v.SetDefault("region.west", 120.0)
	v.SetDefault("region.south", 21.8)
	v.SetDefault("region.east", 122.05)
	v.SetDefault("region.north", 25.4)
	v.SetDefault("composite.collection", "LANDSAT/LC08/C02/T1_L2")
	v.SetDefault("composite.method", "median")
	v.SetDefault("composite.cloud_cover_max", 20)
	v.SetDefault("composite.qa_mask", true)
	v.SetDefault("composite.fill_radius", 1.5)
	v.SetDefault("composite.fill_iterations", 2)
	v.SetDefault("composite.min_year", 2013)
	v.SetDefault("composite.max_year", 2025)
	v.SetDefault("composite.stats_scale", 90)
	v.SetDefault("composite.window.start_month", 1)
	v.SetDefault("composite.window.start_day", 1)
	v.SetDefault("composite.window.end_month", 12)
	v.SetDefault("composite.window.end_day", 31)
	v.SetDefault("render.dimensions", 512)
	v.SetDefault("render.palette", "ndvi")
	v.SetDefault("tiles.cache_capacity", 256)
	v.SetDefault("tiles.session_ttl_mins", 180)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("warm.concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Years returns the inclusive range of selectable composite years.
func (c CompositeConfig) Years() []int {
	if c.MaxYear < c.MinYear {
		return nil
	}
	years := make([]int, 0, c.MaxYear-c.MinYear+1)
	for y := c.MinYear; y <= c.MaxYear; y++ {
		years = append(years, y)
	}
	return years
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
