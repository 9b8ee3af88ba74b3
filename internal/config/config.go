package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the complete server configuration
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Geocoding  GeocodingConfig  `koanf:"geocoding"`
	Routing    RoutingConfig    `koanf:"routing"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Storage    StorageConfig    `koanf:"storage"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int      `koanf:"port"`
	CorsOrigins []string `koanf:"cors_origins"`
	AppVersion  string   `koanf:"app_version"`
}

// GeocodingConfig holds Nominatim settings. MinInterval is the mandatory
// spacing between geocoding requests imposed by the usage policy.
type GeocodingConfig struct {
	BaseURL        string        `koanf:"base_url"`
	UserAgent      string        `koanf:"user_agent"`
	MinInterval    time.Duration `koanf:"min_interval"`
	CandidateLimit int           `koanf:"candidate_limit"`
}

// RoutingConfig holds OSRM settings
type RoutingConfig struct {
	BaseURL          string `koanf:"base_url"`
	Profile          string `koanf:"profile"`
	FallbackStepSize int    `koanf:"fallback_step_size"`
}

// ExtractionConfig holds LLM itinerary extraction settings
type ExtractionConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// StorageConfig holds database and backup locations
type StorageConfig struct {
	DBPath           string        `koanf:"db_path"`
	BackupDir        string        `koanf:"backup_dir"`
	AutosaveDebounce time.Duration `koanf:"autosave_debounce"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	File  string `koanf:"file"`
	Level string `koanf:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CorsOrigins: []string{"*"},
			AppVersion:  "dev",
		},
		Geocoding: GeocodingConfig{
			BaseURL:        "https://nominatim.openstreetmap.org",
			UserAgent:      "tripmapper/1.0",
			MinInterval:    time.Second,
			CandidateLimit: 5,
		},
		Routing: RoutingConfig{
			BaseURL:          "https://router.project-osrm.org",
			Profile:          "driving",
			FallbackStepSize: 100,
		},
		Extraction: ExtractionConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			DBPath:           "./data/routes.db",
			BackupDir:        "./data/backups",
			AutosaveDebounce: 2 * time.Second,
		},
		Logging: LoggingConfig{
			File:  "./logs/tripmapper.log",
			Level: "info",
		},
	}
}

// Load builds the configuration in three layers: built-in defaults, an
// optional YAML file, then TRIPMAPPER_* environment variables. Later
// layers override earlier ones.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	d := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                d.Server.Port,
		"server.cors_origins":        d.Server.CorsOrigins,
		"server.app_version":         d.Server.AppVersion,
		"geocoding.base_url":         d.Geocoding.BaseURL,
		"geocoding.user_agent":       d.Geocoding.UserAgent,
		"geocoding.min_interval":     d.Geocoding.MinInterval,
		"geocoding.candidate_limit":  d.Geocoding.CandidateLimit,
		"routing.base_url":           d.Routing.BaseURL,
		"routing.profile":            d.Routing.Profile,
		"routing.fallback_step_size": d.Routing.FallbackStepSize,
		"extraction.model":           d.Extraction.Model,
		"extraction.timeout":         d.Extraction.Timeout,
		"storage.db_path":            d.Storage.DBPath,
		"storage.backup_dir":         d.Storage.BackupDir,
		"storage.autosave_debounce":  d.Storage.AutosaveDebounce,
		"logging.file":               d.Logging.File,
		"logging.level":              d.Logging.Level,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// TRIPMAPPER_SERVER_PORT maps to server.port, and so on. Keys use a
	// single underscore per level, so key names themselves avoid
	// underscores where possible; the remainder maps via strings.Replace.
	if err := k.Load(env.Provider("TRIPMAPPER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TRIPMAPPER_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The OpenAI key is secret material and only ever read from the
	// environment, never from the config file.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Extraction.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot safely run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Geocoding.UserAgent == "" {
		return fmt.Errorf("geocoding user agent is required")
	}
	if c.Geocoding.MinInterval < time.Second {
		return fmt.Errorf("geocoding min interval must be at least 1s, got %s", c.Geocoding.MinInterval)
	}
	if c.Routing.FallbackStepSize <= 0 {
		return fmt.Errorf("fallback step size must be positive: %d", c.Routing.FallbackStepSize)
	}
	return nil
}
