// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data        DataConfig        `yaml:"data" mapstructure:"data"`
	Scorer      ScorerConfig      `yaml:"scorer" mapstructure:"scorer"`
	Feasibility FeasibilityConfig `yaml:"feasibility" mapstructure:"feasibility"`
	Coverage    CoverageConfig    `yaml:"coverage" mapstructure:"coverage"`
	Geocode     GeocodeConfig     `yaml:"geocode" mapstructure:"geocode"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the reference dataset files loaded at session start.
type DataConfig struct {
	SheltersPath   string `yaml:"shelters_path" mapstructure:"shelters_path"`
	TractsPath     string `yaml:"tracts_path" mapstructure:"tracts_path"`
	PITPath        string `yaml:"pit_path" mapstructure:"pit_path"`
	FacilitiesPath string `yaml:"facilities_path" mapstructure:"facilities_path"`
	BoundariesPath string `yaml:"boundaries_path" mapstructure:"boundaries_path"`

	// BoundsMarginMiles widens the service-area bounding box derived from
	// the loaded tracts before a coordinate is flagged out of bounds.
	BoundsMarginMiles float64 `yaml:"bounds_margin_miles" mapstructure:"bounds_margin_miles"`
}

// ScorerConfig holds the composite scoring weights and normalization cutoffs.
// The three top-level weights must sum to 1.0.
type ScorerConfig struct {
	AccessWeight         float64 `yaml:"access_weight" mapstructure:"access_weight"`
	InfrastructureWeight float64 `yaml:"infrastructure_weight" mapstructure:"infrastructure_weight"`
	CommunityWeight      float64 `yaml:"community_weight" mapstructure:"community_weight"`

	// Proximity cutoffs in miles. A facility at or beyond the cutoff
	// contributes a closeness of zero.
	ShelterCutoffMiles    float64 `yaml:"shelter_cutoff_miles" mapstructure:"shelter_cutoff_miles"`
	HealthcareCutoffMiles float64 `yaml:"healthcare_cutoff_miles" mapstructure:"healthcare_cutoff_miles"`
	GroceryCutoffMiles    float64 `yaml:"grocery_cutoff_miles" mapstructure:"grocery_cutoff_miles"`
	TransitCutoffMiles    float64 `yaml:"transit_cutoff_miles" mapstructure:"transit_cutoff_miles"`

	// Community normalization.
	PovertyRateCeiling float64 `yaml:"poverty_rate_ceiling" mapstructure:"poverty_rate_ceiling"`
	EnvEquityIndicator float64 `yaml:"env_equity_indicator" mapstructure:"env_equity_indicator"`
}

// FeasibilityConfig holds the synthetic terrain proxy thresholds. These model
// simulated flood/soil/slope behavior, not measured geophysical data.
type FeasibilityConfig struct {
	FloodWestLng float64 `yaml:"flood_west_lng" mapstructure:"flood_west_lng"`
	FloodEastLng float64 `yaml:"flood_east_lng" mapstructure:"flood_east_lng"`

	SoilThresholdLat float64 `yaml:"soil_threshold_lat" mapstructure:"soil_threshold_lat"`
	SoilRampWidth    float64 `yaml:"soil_ramp_width" mapstructure:"soil_ramp_width"`

	SlopePivotLat  float64 `yaml:"slope_pivot_lat" mapstructure:"slope_pivot_lat"`
	SlopePerDegree float64 `yaml:"slope_per_degree" mapstructure:"slope_per_degree"`

	CostBase     float64 `yaml:"cost_base" mapstructure:"cost_base"`
	CostPerSlope float64 `yaml:"cost_per_slope" mapstructure:"cost_per_slope"`
	CostCeiling  float64 `yaml:"cost_ceiling" mapstructure:"cost_ceiling"`
}

// CoverageConfig configures the coverage analyzer.
type CoverageConfig struct {
	RadiusMiles float64 `yaml:"radius_miles" mapstructure:"radius_miles"`
}

// GeocodeConfig configures the external geocoding collaborator.
type GeocodeConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries      int     `yaml:"retries" mapstructure:"retries"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	CacheEnabled bool    `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CachePath    string  `yaml:"cache_path" mapstructure:"cache_path"`
}

// StoreConfig configures the optional evaluation history store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("PLACEWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

// Default returns the configuration produced by defaults alone, with no
// config file or environment applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of in-memory defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.shelters_path", "data/shelters.csv")
	v.SetDefault("data.tracts_path", "data/census_tracts.csv")
	v.SetDefault("data.pit_path", "data/pit_summary.csv")
	v.SetDefault("data.facilities_path", "data/facilities.csv")
	v.SetDefault("data.bounds_margin_miles", 5.0)

	v.SetDefault("scorer.access_weight", 0.40)
	v.SetDefault("scorer.infrastructure_weight", 0.30)
	v.SetDefault("scorer.community_weight", 0.30)
	v.SetDefault("scorer.shelter_cutoff_miles", 3.0)
	v.SetDefault("scorer.healthcare_cutoff_miles", 2.0)
	v.SetDefault("scorer.grocery_cutoff_miles", 1.5)
	v.SetDefault("scorer.transit_cutoff_miles", 1.0)
	v.SetDefault("scorer.poverty_rate_ceiling", 0.5)
	v.SetDefault("scorer.env_equity_indicator", 0.65)

	v.SetDefault("feasibility.flood_west_lng", -122.05)
	v.SetDefault("feasibility.flood_east_lng", -121.70)
	v.SetDefault("feasibility.soil_threshold_lat", 37.30)
	v.SetDefault("feasibility.soil_ramp_width", 0.10)
	v.SetDefault("feasibility.slope_pivot_lat", 37.30)
	v.SetDefault("feasibility.slope_per_degree", 600.0)
	v.SetDefault("feasibility.cost_base", 425.0)
	v.SetDefault("feasibility.cost_per_slope", 9.5)
	v.SetDefault("feasibility.cost_ceiling", 800.0)

	v.SetDefault("coverage.radius_miles", 1.0)

	v.SetDefault("geocode.user_agent", "placewell/1.0")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.retries", 2)
	v.SetDefault("geocode.rate_limit_rps", 1.0)
	v.SetDefault("geocode.cache_enabled", true)
	v.SetDefault("geocode.cache_path", "placewell.db")

	// Empty path disables the evaluation history store.
	v.SetDefault("store.path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
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
