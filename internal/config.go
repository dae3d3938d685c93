package internal

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gpx2maps/internal/logging"
	"github.com/starford/gpx2maps/internal/mapslink"
	"github.com/starford/gpx2maps/internal/scraper"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Library   LibraryConfig     `yaml:"library"`
	Index     IndexConfig       `yaml:"index"`
	Maps      MapsConfig        `yaml:"maps"`
	Scrape    ScrapeConfig      `yaml:"scrape"`
	Elevation ElevationConfig   `yaml:"elevation"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Library.Validate(); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Maps.Validate(); err != nil {
		return fmt.Errorf("maps: %w", err)
	}
	if err := c.Scrape.Validate(); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration. An empty
// LogFormat means text for CLI commands and JSON for serve.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(logging.FormatJSON, logging.FormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// LibraryConfig holds the path to the GPX library directory.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig holds the SQLite index location.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MapsConfig controls link building and Directions API validation.
// An empty APIKey disables conversion.
type MapsConfig struct {
	APIKey        string `yaml:"api_key"`
	Zoom          int    `yaml:"zoom"`
	MaxPoints     int    `yaml:"max_points"`
	ValidateLinks bool   `yaml:"validate"`
	BaseURL       string `yaml:"base_url"`
}

// Validate validates the maps configuration.
func (c *MapsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Zoom, validation.Min(1), validation.Max(21)),
		validation.Field(&c.MaxPoints, validation.Min(2)),
	)
}

// Builder returns the link builder for this configuration.
func (c *MapsConfig) Builder() mapslink.Builder {
	return mapslink.Builder{Zoom: c.Zoom, MaxPoints: c.MaxPoints}
}

// ScrapeConfig controls the route-site scrapers.
type ScrapeConfig struct {
	UserAgent string            `yaml:"user_agent"`
	Timeout   time.Duration     `yaml:"timeout"`
	Offline   bool              `yaml:"offline"`
	BaseURLs  map[string]string `yaml:"base_urls"`
}

// Validate validates the scrape configuration.
func (c *ScrapeConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	known := scraper.SourceNames()
	for name := range c.BaseURLs {
		if !slices.Contains(known, name) {
			return fmt.Errorf("base_urls: unknown source %q", name)
		}
	}
	return nil
}

// ScraperConfig converts to the scraper package configuration.
func (c *ScrapeConfig) ScraperConfig() scraper.Config {
	return scraper.Config{
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		Offline:   c.Offline,
		BaseURLs:  c.BaseURLs,
	}
}

// ElevationConfig toggles SRTM elevation back-fill.
type ElevationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Library: LibraryConfig{
			Path: "./gpx_files",
		},
		Index: IndexConfig{
			Path: "./gpx2maps.db",
		},
		Maps: MapsConfig{
			Zoom:          mapslink.DefaultZoom,
			MaxPoints:     mapslink.DefaultMaxPoints,
			ValidateLinks: true,
		},
		Scrape: ScrapeConfig{
			UserAgent: scraper.DefaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
