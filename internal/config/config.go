// Package config loads trustfall settings from a YAML file and environment
// variables. Order: defaults -> config file -> TRUSTFALL_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/trustfall/internal/engine"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRUSTFALL_"

// Config contains all trustfall settings.
type Config struct {
	// DBPath is the SQLite file the CLI keeps state in.
	DBPath string `yaml:"db_path" env:"DB_PATH"`

	// Seed makes runs reproducible. Zero picks a fresh seed per run.
	Seed int64 `yaml:"seed" env:"SEED"`

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// StartDate is the first simulated day, YYYY-MM-DD. Empty means today.
	StartDate string `yaml:"start_date" env:"START_DATE"`

	Simulation engine.Config `yaml:"simulation"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:     "trustfall.db",
		LogLevel:   "info",
		Simulation: engine.DefaultConfig(),
	}
}

// Load reads path when it exists and then applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		switch {
		case err == nil:
			cfg = fileCfg
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads settings from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}
	if _, err := c.Start(time.Time{}); err != nil {
		return err
	}
	return c.Simulation.Validate()
}

// Start returns the configured start date, or today (truncated to midnight
// UTC) when none is set.
func (c *Config) Start(now time.Time) (time.Time, error) {
	if c.StartDate == "" {
		return now.UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: %w", c.StartDate, err)
	}
	return t, nil
}
