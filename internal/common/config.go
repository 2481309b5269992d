package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/lustro/internal/models"
)

// Config represents the application configuration
type Config struct {
	Crawler     models.CrawlConfig `toml:"crawler"`
	Screenshots ScreenshotConfig   `toml:"screenshots"`
	Lighthouse  LighthouseConfig   `toml:"lighthouse"`
	Storage     StorageConfig      `toml:"storage"`
	Report      ReportConfig       `toml:"report"`
	Logging     LoggingConfig      `toml:"logging"`
}

// ScreenshotConfig controls the screenshot collaborator
type ScreenshotConfig struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`       // Output directory for captured PNGs
	FullPage bool   `toml:"full_page"` // Capture full scroll height in addition to the viewport
	Width    int    `toml:"width"`     // Viewport width in pixels
	Height   int    `toml:"height"`    // Viewport height in pixels
	Quality  int    `toml:"quality"`   // Capture quality (0-100)
}

// LighthouseConfig controls the performance audit collaborator
type LighthouseConfig struct {
	Enabled bool   `toml:"enabled"`
	Binary  string `toml:"binary"`  // Lighthouse CLI binary name or path
	Dir     string `toml:"dir"`     // Output directory for raw audit JSON
	Timeout string `toml:"timeout"` // Per-audit timeout, e.g. "90s"
}

// StorageConfig controls persistence of completed crawl results
type StorageConfig struct {
	Enabled bool         `toml:"enabled"`
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path string `toml:"path"` // Database directory path
}

// ReportConfig controls crawl report output
type ReportConfig struct {
	Dir  string `toml:"dir"`  // Output directory for reports
	JSON bool   `toml:"json"` // Write crawl-<id>.json
	PDF  bool   `toml:"pdf"`  // Write crawl-<id>.pdf summary
}

// LoggingConfig controls arbor logger output
type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the built-in defaults applied before any file or
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Crawler: models.DefaultCrawlConfig(),
		Screenshots: ScreenshotConfig{
			Enabled:  false,
			Dir:      "./output/screenshots",
			FullPage: true,
			Width:    1920,
			Height:   1080,
			Quality:  90,
		},
		Lighthouse: LighthouseConfig{
			Enabled: false,
			Binary:  "lighthouse",
			Dir:     "./output/lighthouse",
			Timeout: "90s",
		},
		Storage: StorageConfig{
			Enabled: false,
			Badger: BadgerConfig{
				Path: "./data/lustro",
			},
		},
		Report: ReportConfig{
			Dir:  "./output",
			JSON: true,
			PDF:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig builds the effective configuration: defaults, then the TOML
// file if given, then environment overrides. The crawler section is
// validated before returning.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the crawl section with go-playground/validator
func (c *Config) Validate() error {
	if err := validator.New().Struct(c.Crawler); err != nil {
		return fmt.Errorf("invalid crawler config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies LUSTRO_* environment variables on top of the
// loaded configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LUSTRO_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Crawler.MaxPages = n
		}
	}
	if v := os.Getenv("LUSTRO_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Crawler.Timeout = n
		}
	}
	if v := os.Getenv("LUSTRO_WAIT_TIME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Crawler.WaitTime = n
		}
	}
	if v := os.Getenv("LUSTRO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
