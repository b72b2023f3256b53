// Package config loads the tracker's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/track"
)

// Config is the full configuration for the tracking core.
type Config struct {
	Database  Database  `yaml:"database"`
	Detection Detection `yaml:"detection"`
	Sweep     Sweep     `yaml:"sweep"`
}

// Database selects and parameterizes the storage backend.
type Database struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file (sqlite driver only).
	Path string `yaml:"path"`

	// DSN is the Postgres connection string (postgres driver only).
	DSN string `yaml:"dsn"`
}

// Detection tunes the exception detector.
type Detection struct {
	// ToleranceMinutes is the allowed lateness before a completion is
	// classified as late. Default 1.
	ToleranceMinutes float64 `yaml:"tolerance_minutes"`

	// TerminalStatuses overrides the per-entity-type terminal statuses.
	// Keys are entity types; values are status lists.
	TerminalStatuses map[string][]string `yaml:"terminal_statuses"`
}

// Sweep tunes the non-occurrence sweeper. The sweep never runs unless
// scheduled by the operator; Interval only parameterizes that schedule.
type Sweep struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database:  Database{Driver: "sqlite", Path: "eryxon-flow.db"},
		Detection: Detection{ToleranceMinutes: 1},
		Sweep:     Sweep{Enabled: false, Interval: 15 * time.Minute},
	}
}

// Load reads a YAML config file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q (want sqlite or postgres)", c.Database.Driver)
	}

	if c.Detection.ToleranceMinutes < 0 {
		return fmt.Errorf("detection.tolerance_minutes must not be negative")
	}

	for et := range c.Detection.TerminalStatuses {
		if !track.ValidEntityTypes[track.EntityType(et)] {
			return fmt.Errorf("detection.terminal_statuses: unknown entity type %q", et)
		}
	}

	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive when sweep is enabled")
	}

	return nil
}

// Tolerance returns the detection tolerance as a duration.
func (c Config) Tolerance() time.Duration {
	return time.Duration(c.Detection.ToleranceMinutes * float64(time.Minute))
}

// TerminalStatuses returns the configured terminal-status table, or nil when
// the defaults should apply.
func (c Config) TerminalStatuses() map[track.EntityType]map[string]bool {
	if len(c.Detection.TerminalStatuses) == 0 {
		return nil
	}
	out := make(map[track.EntityType]map[string]bool, len(c.Detection.TerminalStatuses))
	for et, statuses := range c.Detection.TerminalStatuses {
		set := make(map[string]bool, len(statuses))
		for _, s := range statuses {
			set[s] = true
		}
		out[track.EntityType(et)] = set
	}
	return out
}
