// Package config loads the wlf command configuration with Viper from a
// .wlf.yml file, WLF_ prefixed environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
)

type Config struct {
	Views  ViewsConfig  `mapstructure:"views" yaml:"views"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	CSRF   CSRFConfig   `mapstructure:"csrf" yaml:"csrf"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type ViewsConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	Marker       string `mapstructure:"marker" yaml:"marker"`
	ExtendsDepth int    `mapstructure:"extends_depth" yaml:"extends_depth"`
	IncludeDepth int    `mapstructure:"include_depth" yaml:"include_depth"`
	Disabled     bool   `mapstructure:"disabled" yaml:"disabled"`
}

type CacheConfig struct {
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Expiry  time.Duration `mapstructure:"expiry" yaml:"expiry"`
}

type CSRFConfig struct {
	Field  string `mapstructure:"field" yaml:"field"`
	MaxAge int    `mapstructure:"max_age" yaml:"max_age"`
	// Mode is "cookie" or "gorilla"
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Key is the 32 byte authentication key of the gorilla mode
	Key string `mapstructure:"key" yaml:"key"`
}

type ServerConfig struct {
	Addr  string        `mapstructure:"addr" yaml:"addr"`
	Watch bool          `mapstructure:"watch" yaml:"watch"`
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("views.dir", "app/views")
	v.SetDefault("views.marker", "~")
	v.SetDefault("views.extends_depth", 8)
	v.SetDefault("views.include_depth", 32)
	v.SetDefault("views.disabled", false)
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.expiry", 7*24*time.Hour)
	v.SetDefault("csrf.field", "__token")
	v.SetDefault("csrf.max_age", 3600)
	v.SetDefault("csrf.mode", "cookie")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.watch", false)
	v.SetDefault("server.delay", 100*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance reading WLF_ environment variables, with defaults.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("WLF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and unmarshals the configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".wlf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Views.Dir) == "" {
		errs = append(errs, errors.New("views.dir must not be empty"))
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) == "" {
		errs = append(errs, errors.New("cache.dir must not be empty when the cache is enabled"))
	}
	if utf8.RuneCountInString(c.Views.Marker) != 1 {
		errs = append(errs, fmt.Errorf("views.marker must be a single character, got %q", c.Views.Marker))
	}
	if c.Views.ExtendsDepth <= 0 {
		errs = append(errs, errors.New("views.extends_depth must be positive"))
	}
	if c.Views.IncludeDepth <= 0 {
		errs = append(errs, errors.New("views.include_depth must be positive"))
	}
	switch c.CSRF.Mode {
	case "cookie":
	case "gorilla":
		if len(c.CSRF.Key) != 32 {
			errs = append(errs, errors.New("csrf.key must be 32 bytes in gorilla mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("csrf.mode must be cookie or gorilla, got %q", c.CSRF.Mode))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
