// Package config defines the pipeline configuration and its loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML/TOML file and XREF_ environment variables.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
)

// Limits caps the ranked tables in summary.json.
type Limits struct {
	TopPersons       int `koanf:"top_persons"`
	TopRoutes        int `koanf:"top_routes"`
	TopTags          int `koanf:"top_tags"`
	TopPowerMentions int `koanf:"top_power_mentions"`
	TopAgencies      int `koanf:"top_agencies"`
	TopLeadTypes     int `koanf:"top_lead_types"`
	TopNationalities int `koanf:"top_nationalities"`
	TopCategories    int `koanf:"top_categories"`
	TopAirports      int `koanf:"top_airports"`
	TopAircraft      int `koanf:"top_aircraft"`
	TopEmailContacts int `koanf:"top_email_contacts"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DataDir holds one subdirectory per raw table.
	DataDir string `koanf:"data_dir"`

	// ImageIndex is the name -> image references mapping produced by the image sync step.
	ImageIndex string `koanf:"image_index"`

	// OutputDir receives the five JSON documents.
	OutputDir string `koanf:"output_dir"`

	// AssetRoot is the directory image paths are relative to.
	AssetRoot string `koanf:"asset_root"`

	// CheckAssets aborts the export when a referenced image is missing.
	CheckAssets bool `koanf:"check_assets"`

	// SnapshotDB, when set, receives a SQLite copy of persons and links.
	SnapshotDB string `koanf:"snapshot_db"`

	// MetricsFile, when set, receives run counters in Prometheus text format.
	MetricsFile string `koanf:"metrics_file"`

	// Workers bounds parallel file loading.
	Workers int `koanf:"workers"`

	// PrimaryFiles lists, per table, files loaded before the rest (source priority).
	PrimaryFiles map[string][]string `koanf:"primary_files"`

	// CoPassengerFallback derives edges from flight manifests when no relationship data exists.
	CoPassengerFallback bool `koanf:"co_passenger_fallback"`
	CoPassengerLimit    int  `koanf:"co_passenger_limit"`

	Limits Limits `koanf:"limits"`
}

// DefaultLimits returns the ranking sizes used by the dashboard.
func DefaultLimits() Limits {
	return Limits{
		TopPersons:       15,
		TopRoutes:        20,
		TopTags:          30,
		TopPowerMentions: 20,
		TopAgencies:      15,
		TopLeadTypes:     15,
		TopNationalities: 20,
		TopCategories:    20,
		TopAirports:      15,
		TopAircraft:      10,
		TopEmailContacts: 15,
	}
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		DataDir:     "data",
		ImageIndex:  "data/processed/image_index.json",
		OutputDir:   "dashboard/data",
		AssetRoot:   ".",
		CheckAssets: true,
		Workers:     runtime.NumCPU(),
		PrimaryFiles: map[string][]string{
			"persons_of_interest": {"entities.csv"},
		},
		CoPassengerFallback: true,
		CoPassengerLimit:    500,
		Limits:              DefaultLimits(),
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.CoPassengerLimit < 0 {
		return fmt.Errorf("%w: co_passenger_limit must not be negative", ErrInvalidConfig)
	}
	l := c.Limits
	for name, v := range map[string]int{
		"top_persons":        l.TopPersons,
		"top_routes":         l.TopRoutes,
		"top_tags":           l.TopTags,
		"top_power_mentions": l.TopPowerMentions,
		"top_agencies":       l.TopAgencies,
		"top_lead_types":     l.TopLeadTypes,
		"top_nationalities":  l.TopNationalities,
		"top_categories":     l.TopCategories,
		"top_airports":       l.TopAirports,
		"top_aircraft":       l.TopAircraft,
		"top_email_contacts": l.TopEmailContacts,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: limits.%s must be positive, got %d", ErrInvalidConfig, name, v)
		}
	}
	return nil
}
