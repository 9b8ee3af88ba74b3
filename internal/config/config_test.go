package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocoding.BaseURL)
	assert.Equal(t, time.Second, cfg.Geocoding.MinInterval)
	assert.Equal(t, 5, cfg.Geocoding.CandidateLimit)
	assert.Equal(t, "driving", cfg.Routing.Profile)
	assert.Equal(t, 100, cfg.Routing.FallbackStepSize)
	assert.Equal(t, "./data/routes.db", cfg.Storage.DBPath)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
server:
  port: 9090
routing:
  profile: car
  fallback_step_size: 250
geocoding:
  user_agent: "tripmapper-test/0.1"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "car", cfg.Routing.Profile)
	assert.Equal(t, 250, cfg.Routing.FallbackStepSize)
	assert.Equal(t, "tripmapper-test/0.1", cfg.Geocoding.UserAgent)
	// Untouched sections keep their defaults
	assert.Equal(t, "https://router.project-osrm.org", cfg.Routing.BaseURL)
}

func TestLoadEnvOverridesAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("TRIPMAPPER_SERVER_PORT", "7070")
	t.Setenv("TRIPMAPPER_ROUTING_PROFILE", "bike")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "bike", cfg.Routing.Profile)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestOpenAIKeyComesFromEnvironmentOnly(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.Extraction.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"empty user agent", func(c *Config) { c.Geocoding.UserAgent = "" }},
		{"sub-second geocode interval", func(c *Config) { c.Geocoding.MinInterval = 200 * time.Millisecond }},
		{"non-positive step size", func(c *Config) { c.Routing.FallbackStepSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
