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
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Jobs     JobsConfig     `yaml:"jobs" mapstructure:"jobs"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Precinct PrecinctConfig `yaml:"precinct" mapstructure:"precinct"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the artifact directories and the address cache file.
type DataConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	PublicDir string `yaml:"public_dir" mapstructure:"public_dir"`
	CacheFile string `yaml:"cache_file" mapstructure:"cache_file"`
}

// GeocodeConfig configures the provider chain.
type GeocodeConfig struct {
	CensusURL        string   `yaml:"census_url" mapstructure:"census_url"`
	PhotonURL        string   `yaml:"photon_url" mapstructure:"photon_url"`
	NominatimURL     string   `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	GoogleURL        string   `yaml:"google_url" mapstructure:"google_url"`
	GoogleKey        string   `yaml:"google_key" mapstructure:"google_key"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	NominatimMaxRPS  int      `yaml:"nominatim_max_rps" mapstructure:"nominatim_max_rps"`
	DefaultCity      string   `yaml:"default_city" mapstructure:"default_city"`
	DefaultState     string   `yaml:"default_state" mapstructure:"default_state"`
	KnownCities      []string `yaml:"known_cities" mapstructure:"known_cities"`
	WorkersPerJob    int      `yaml:"workers_per_job" mapstructure:"workers_per_job"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
	DisableFallbacks bool     `yaml:"disable_fallbacks" mapstructure:"disable_fallbacks"`
}

// JobsConfig configures the job scheduler and history store.
type JobsConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	PollMillis    int `yaml:"poll_millis" mapstructure:"poll_millis"`
}

// StoreConfig configures the job history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PrecinctConfig configures boundary shapefile conversion.
type PrecinctConfig struct {
	CountyFIPS string `yaml:"county_fips" mapstructure:"county_fips"`
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
	v.SetEnvPrefix("ROLLMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.public_dir", "public/data")
	v.SetDefault("data.cache_file", "data/geocode_cache.json")
	v.SetDefault("geocode.census_url", "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress")
	v.SetDefault("geocode.photon_url", "https://photon.komoot.io/api")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.google_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.nominatim_max_rps", 1)
	v.SetDefault("geocode.default_city", "Lubbock")
	v.SetDefault("geocode.default_state", "Texas")
	v.SetDefault("geocode.known_cities", []string{
		"Lubbock", "Wolfforth", "Slaton", "Idalou", "Shallowater",
		"McAllen", "Edinburg", "Mission", "Pharr", "Weslaco",
		"Brownsville", "Harlingen", "San Benito", "Donna", "Alamo",
		"Mercedes", "La Joya", "Elsa", "Edcouch", "San Juan",
	})
	v.SetDefault("geocode.workers_per_job", 20)
	v.SetDefault("geocode.user_agent", "rollmap/1.0")
	v.SetDefault("jobs.max_concurrent", 3)
	v.SetDefault("jobs.poll_millis", 2000)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/jobs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks bounds on the knobs the pipeline depends on.
func (c *Config) Validate() error {
	var problems []string
	if c.Jobs.MaxConcurrent < 1 || c.Jobs.MaxConcurrent > 20 {
		problems = append(problems, "jobs.max_concurrent must be between 1 and 20")
	}
	if c.Geocode.WorkersPerJob < 1 || c.Geocode.WorkersPerJob > 100 {
		problems = append(problems, "geocode.workers_per_job must be between 1 and 100")
	}
	if c.Geocode.TimeoutSecs <= 0 {
		problems = append(problems, "geocode.timeout_secs must be > 0")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
