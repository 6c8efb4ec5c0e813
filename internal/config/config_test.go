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
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "app/views", cfg.Views.Dir)
	assert.Equal(t, "~", cfg.Views.Marker)
	assert.Equal(t, 8, cfg.Views.ExtendsDepth)
	assert.Equal(t, 32, cfg.Views.IncludeDepth)
	assert.Equal(t, "cache", cfg.Cache.Dir)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.Expiry)
	assert.Equal(t, "__token", cfg.CSRF.Field)
	assert.Equal(t, 3600, cfg.CSRF.MaxAge)
	assert.Equal(t, "cookie", cfg.CSRF.Mode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".wlf.yml"), []byte(`
views:
  dir: resources/views
  marker: "%"
cache:
  expiry: 1h
csrf:
  field: _csrf
`), 0o644))
	t.Setenv("WLF_CACHE_DIR", "/tmp/wlf")
	t.Setenv("WLF_LOG_FORMAT", "json")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "resources/views", cfg.Views.Dir)
	assert.Equal(t, "%", cfg.Views.Marker)
	assert.Equal(t, time.Hour, cfg.Cache.Expiry)
	assert.Equal(t, "_csrf", cfg.CSRF.Field)
	assert.Equal(t, "/tmp/wlf", cfg.Cache.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty views dir", func(c *Config) { c.Views.Dir = " " }, "views.dir"},
		{"empty cache dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
		{"long marker", func(c *Config) { c.Views.Marker = "~~" }, "views.marker"},
		{"empty marker", func(c *Config) { c.Views.Marker = "" }, "views.marker"},
		{"extends depth", func(c *Config) { c.Views.ExtendsDepth = 0 }, "views.extends_depth"},
		{"include depth", func(c *Config) { c.Views.IncludeDepth = -1 }, "views.include_depth"},
		{"csrf mode", func(c *Config) { c.CSRF.Mode = "none" }, "csrf.mode"},
		{"gorilla key", func(c *Config) { c.CSRF.Mode = "gorilla"; c.CSRF.Key = "short" }, "csrf.key"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := valid()
	cfg.Cache.Enabled = false
	cfg.Cache.Dir = ""
	assert.NoError(t, cfg.Validate(), "no cache dir is needed without the cache")

	cfg.CSRF.Mode = "gorilla"
	cfg.CSRF.Key = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}
