// Package config loads the simulation runner settings.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// GUARDSIM_LOG_LEVEL.
const EnvPrefix = "GUARDSIM"

// Config is the resolved runner configuration.
type Config struct {
	Scenario  string  `mapstructure:"scenario"`
	Ticks     int     `mapstructure:"ticks"`
	DeltaTime float64 `mapstructure:"dt"`
	Seed      int64   `mapstructure:"seed"`
	AlertMode string  `mapstructure:"alertMode"`
	Watch     bool    `mapstructure:"watch"`
	Prefabs   string  `mapstructure:"prefabsDir"`

	Log struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`

	Journal struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"journal"`

	Telemetry struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"telemetry"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scenario", "courtyard")
	v.SetDefault("ticks", 0)
	v.SetDefault("dt", 1.0/60.0)
	v.SetDefault("seed", 1)
	v.SetDefault("alertMode", "")
	v.SetDefault("watch", false)
	v.SetDefault("prefabsDir", "prefabs")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("journal.path", "")

	v.SetDefault("telemetry.enabled", true)
}

// Load reads guardsim.yaml from configDir when present, applies GUARDSIM_*
// environment overrides and decodes the result. A missing file is not an
// error.
func Load(v *viper.Viper, configDir string) (Config, error) {
	SetDefaults(v)

	v.SetConfigName("guardsim")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("config: invalid")

func (c Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("%w: scenario is empty", ErrInvalidConfig)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("%w: ticks must not be negative", ErrInvalidConfig)
	}
	if c.DeltaTime <= 0 {
		return fmt.Errorf("%w: dt must be positive", ErrInvalidConfig)
	}
	switch c.AlertMode {
	case "", "direct", "queued":
	default:
		return fmt.Errorf("%w: unknown alert mode %q", ErrInvalidConfig, c.AlertMode)
	}
	return nil
}
