package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
cache_dir = "/tmp/newsdesk-test-cache"
log_level = "debug"
default_feed = "Technology"
server_address = "127.0.0.1:9090"
offline = true
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/newsdesk-test-cache", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Technology", cfg.DefaultFeed)
	assert.Equal(t, "127.0.0.1:9090", cfg.ServerAddress)
	assert.True(t, cfg.Offline)
	assert.Equal(t, 15*time.Minute, cfg.FeedTTL)
	assert.Equal(t, time.Hour, cfg.ArticleTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.NotEmpty(t, cfg.LogDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `log_level = "debug"`)
	t.Setenv("NEWSDESK_LOG_LEVEL", "warn")
	t.Setenv("NEWSDESK_DEFAULT_FEED", "World")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "World", cfg.DefaultFeed)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))

	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Top Stories", cfg.DefaultFeed)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.False(t, cfg.Offline)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Equal(t, filepath.Base(cfg.CacheDir), appName)
	assert.Equal(t, LoggerConfig{Level: "info", Dir: cfg.LogDir}, cfg.Logger())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero feed ttl", func(c *Config) { c.FeedTTL = 0 }},
		{"negative article ttl", func(c *Config) { c.ArticleTTL = -time.Second }},
		{"timeout too short", func(c *Config) { c.HTTPTimeout = 9 * time.Second }},
		{"timeout too long", func(c *Config) { c.HTTPTimeout = 16 * time.Second }},
		{"bad address", func(c *Config) { c.ServerAddress = "8080" }},
		{"unknown level", func(c *Config) { c.LogLevel = "verbose" }},
		{"zero archive limit", func(c *Config) { c.ArchiveLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_TimeoutBounds(t *testing.T) {
	for _, d := range []time.Duration{10 * time.Second, 12 * time.Second, 15 * time.Second} {
		cfg := New()
		cfg.HTTPTimeout = d
		assert.NoError(t, cfg.Validate(), d.String())
	}
}
