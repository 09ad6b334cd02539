// Package config loads tool configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for schsync.
// Configuration can come from a YAML file or environment variables;
// environment variables override YAML values.
type Config struct {
	// Project names the KiCad project recorded in hidden instance
	// bookkeeping on hierarchical sheets. Empty derives it from the
	// output file name.
	Project string `yaml:"project" env:"SCHSYNC_PROJECT" env-default:""`

	// ExtraRailsStr is a comma-separated list of additional exact net
	// names treated as power rails, e.g. "VSYS,VBATT".
	ExtraRailsStr string `yaml:"extra_rails" env:"SCHSYNC_EXTRA_RAILS" env-default:""`

	// ExtraRails is the parsed list from ExtraRailsStr (not from config file).
	ExtraRails []string `yaml:"-"`

	// Placement configures where newly added entities land.
	Placement PlacementConfig `yaml:"placement"`
}

// PlacementConfig holds the grid placer geometry in millimeters.
type PlacementConfig struct {
	StepX   float64 `yaml:"step_x" env:"SCHSYNC_STEP_X" env-default:"25.4"`
	StepY   float64 `yaml:"step_y" env:"SCHSYNC_STEP_Y" env-default:"25.4"`
	Columns int     `yaml:"columns" env:"SCHSYNC_COLUMNS" env-default:"4"`
	Margin  float64 `yaml:"margin" env:"SCHSYNC_MARGIN" env-default:"12.7"`
	// MaxRows bounds the placement area; zero means unlimited.
	MaxRows int `yaml:"max_rows" env:"SCHSYNC_MAX_ROWS" env-default:"0"`
}

// Load reads configuration from the given YAML file, falling back to pure
// environment/default configuration when path is empty or the file does not
// exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			cfg.parseComplexFields()
			return cfg, cfg.validate()
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.parseComplexFields()
	return cfg, cfg.validate()
}

func (c *Config) parseComplexFields() {
	c.ExtraRails = c.ExtraRails[:0]
	for _, rail := range strings.Split(c.ExtraRailsStr, ",") {
		rail = strings.TrimSpace(rail)
		if rail != "" {
			c.ExtraRails = append(c.ExtraRails, rail)
		}
	}
}

func (c *Config) validate() error {
	if c.Placement.Columns <= 0 {
		return fmt.Errorf("placement columns must be positive, got %d", c.Placement.Columns)
	}
	if c.Placement.StepX <= 0 || c.Placement.StepY <= 0 {
		return fmt.Errorf("placement grid pitch must be positive")
	}
	return nil
}
