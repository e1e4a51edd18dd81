// Package config loads application configuration from an optional YAML file
// and NITRATE_-prefixed environment variables, with defaults for every key.
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
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Grid   GridConfig   `yaml:"grid" mapstructure:"grid"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the input shapefiles and names the attributes the
// loaders resolve. The list-valued keys are ordered first-match-wins
// policies, matched case-insensitively.
type DataConfig struct {
	Dir        string   `yaml:"dir" mapstructure:"dir"`
	PointsFile string   `yaml:"points_file" mapstructure:"points_file"`
	ZonesFile  string   `yaml:"zones_file" mapstructure:"zones_file"`
	ValueField string   `yaml:"value_field" mapstructure:"value_field"`
	RateField  string   `yaml:"rate_field" mapstructure:"rate_field"`
	IDFields   []string `yaml:"id_fields" mapstructure:"id_fields"`
	CaseFields []string `yaml:"case_fields" mapstructure:"case_fields"`
	PopFields  []string `yaml:"pop_fields" mapstructure:"pop_fields"`
}

// OutputConfig configures where generated artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// GridConfig holds default interpolation parameters; command flags and API
// payloads override them per evaluation.
type GridConfig struct {
	K         float64 `yaml:"k" mapstructure:"k"`
	Neighbors int     `yaml:"neighbors" mapstructure:"neighbors"`
	CellSize  float64 `yaml:"cell_size" mapstructure:"cell_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
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
	v.SetEnvPrefix("NITRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "static/shapefiles")
	v.SetDefault("data.points_file", "well_nitrate.shp")
	v.SetDefault("data.zones_file", "cancer_tracts.shp")
	v.SetDefault("data.value_field", "nitr_ran")
	v.SetDefault("data.rate_field", "canrate")
	v.SetDefault("data.id_fields", []string{"GEOID10", "GEOID", "geoid", "geoid10"})
	v.SetDefault("data.case_fields", []string{"cases", "count", "cancer", "incidences", "case_cnt", "num_cases"})
	v.SetDefault("data.pop_fields", []string{"pop", "population", "pop2010", "tot_pop", "total_pop", "pop_total"})
	v.SetDefault("output.dir", "outputs")
	v.SetDefault("grid.k", 2.0)
	v.SetDefault("grid.neighbors", 12)
	v.SetDefault("grid.cell_size", 1000.0)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.static_dir", "static")
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
