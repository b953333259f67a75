package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("VDF_REDIS_ADDR", "")
	t.Setenv("VDF_POSTGRES_DSN", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Scanner.Workers)
	assert.Equal(t, 3, cfg.Engine.MaxZones)
	assert.Equal(t, 1, cfg.Engine.Precision.Percent)
	assert.Equal(t, 3, cfg.Engine.Precision.Ratio)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
scanner:
  workers: 3
  ticker_timeout: 20s
engine:
  max_zones: 5
  percent_decimals: 2
cache:
  ttl: 30m
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("VDF_POSTGRES_DSN", "postgres://vdf@localhost/vdf")
	t.Setenv("VDF_JWT_SECRET", "s3cret")
	t.Setenv("VDF_REDIS_ADDR", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scanner.Workers)
	assert.Equal(t, 20*time.Second, cfg.Scanner.TickerTimeout)
	assert.Equal(t, 180, cfg.Scanner.ScanDays, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Engine.MaxZones)
	assert.Equal(t, 2, cfg.Engine.Precision.Percent)
	assert.Equal(t, 3, cfg.Engine.Precision.Ratio)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Scanner.Workers = 0 }},
		{"zero zones", func(c *Config) { c.Engine.MaxZones = 0 }},
		{"pre context too long", func(c *Config) { c.Scanner.PreContextDays = c.Scanner.ScanDays }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres"; c.Storage.DSN = "" }},
		{"negative decimals", func(c *Config) { c.Engine.Precision.Ratio = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}
