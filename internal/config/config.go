// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and GINCANA_ env vars.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Source is the workbook path or http(s) URL. Empty serves demo data.
	Source string `koanf:"source"`

	// Sheet names inside the workbook.
	SheetParticipants string `koanf:"sheet_participants" validate:"required"`
	SheetCategories   string `koanf:"sheet_categories" validate:"required"`
	SheetDonations    string `koanf:"sheet_donations" validate:"required"`

	// CacheTTLSeconds is how long a loaded workbook is reused. 0 keeps it
	// until invalidated.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds" validate:"gte=0"`

	// RefreshIntervalSeconds enables a background reload. 0 disables it.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds" validate:"gte=0"`

	// FetchTimeoutSeconds bounds a URL download.
	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds" validate:"gt=0"`

	// DemoFallback serves demo data when the workbook cannot be loaded.
	DemoFallback bool `koanf:"demo_fallback"`

	// WatchSource invalidates the cache when a local workbook changes.
	WatchSource bool `koanf:"watch_source"`

	// LooseFormulaDetection treats any text with '=' as a formula. Known to
	// misread notes; off by default.
	LooseFormulaDetection bool `koanf:"loose_formula_detection"`

	// Column letters referenced by textual formulas in the donation sheet.
	QuantityColumnLetter   string `koanf:"quantity_column_letter" validate:"required,alpha,max=3"`
	UnitPointsColumnLetter string `koanf:"unit_points_column_letter" validate:"required,alpha,max=3"`

	// ReloadRatePerMinute caps POST /reload.
	ReloadRatePerMinute int `koanf:"reload_rate_per_minute" validate:"gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		SheetParticipants:      "participantes",
		SheetCategories:        "categorias",
		SheetDonations:         "doacoes_registros",
		CacheTTLSeconds:        300,
		FetchTimeoutSeconds:    30,
		DemoFallback:           true,
		QuantityColumnLetter:   "G",
		UnitPointsColumnLetter: "H",
		ReloadRatePerMinute:    6,
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.WatchSource && c.Source == "" {
		return fmt.Errorf("%w: watch_source needs a source", ErrInvalidConfig)
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }

// RefreshInterval returns the background reload interval.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// FetchTimeout returns the download timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}
