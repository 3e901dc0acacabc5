// Package config provides configuration management for rune applications
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable overrides
// with the RUNE_ prefix and validation. It manages server settings, the
// directories pages and API routes are scanned from, and development options
// such as the hot reload channel and its reconnect policy.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	runeerrors "github.com/conneroisu/rune/internal/errors"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Paths  PathsConfig  `mapstructure:"paths"  yaml:"paths"`
	Dev    DevConfig    `mapstructure:"dev"    yaml:"dev"`
	Log    LogConfig    `mapstructure:"log"    yaml:"log"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"        yaml:"port"`
	Host        string `mapstructure:"host"        yaml:"host"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	PoweredBy   bool   `mapstructure:"powered_by"  yaml:"powered_by"`
}

type PathsConfig struct {
	Pages              string `mapstructure:"pages"                yaml:"pages"`
	API                string `mapstructure:"api"                  yaml:"api"`
	Public             string `mapstructure:"public"               yaml:"public"`
	Build              string `mapstructure:"build"                yaml:"build"`
	ClientAssetsPrefix string `mapstructure:"client_assets_prefix" yaml:"client_assets_prefix"`
}

type DevConfig struct {
	HotReload            bool          `mapstructure:"hot_reload"             yaml:"hot_reload"`
	HotReloadPort        int           `mapstructure:"hot_reload_port"        yaml:"hot_reload_port"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval"     yaml:"reconnect_interval"`
	SettleDelay          time.Duration `mapstructure:"settle_delay"           yaml:"settle_delay"`
	Debounce             time.Duration `mapstructure:"debounce"               yaml:"debounce"`
	Ignore               []string      `mapstructure:"ignore"                 yaml:"ignore"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.environment", EnvDevelopment)
	v.SetDefault("server.powered_by", true)

	v.SetDefault("paths.pages", "src/pages")
	v.SetDefault("paths.api", "src/api")
	v.SetDefault("paths.public", "public")
	v.SetDefault("paths.build", "dist")
	v.SetDefault("paths.client_assets_prefix", "/assets")

	v.SetDefault("dev.hot_reload", true)
	v.SetDefault("dev.hot_reload_port", 3001)
	v.SetDefault("dev.max_reconnect_attempts", 10)
	v.SetDefault("dev.reconnect_interval", time.Second)
	v.SetDefault("dev.settle_delay", 50*time.Millisecond)
	v.SetDefault("dev.debounce", 100*time.Millisecond)
	v.SetDefault("dev.ignore", []string{"node_modules", ".git", "dist", "*.log"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
}

// Load reads the configuration held by the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration held by v, applying defaults for every
// key that is not set and validating the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// viper hands back env-provided slices as a single string
	if v.IsSet("dev.ignore") && len(config.Dev.Ignore) <= 1 {
		if ignore := v.GetStringSlice("dev.ignore"); len(ignore) > 0 {
			config.Dev.Ignore = ignore
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, runeerrors.Wrap(err, runeerrors.ErrorTypeConfig, runeerrors.ErrCodeConfigInvalid, "invalid configuration")
	}

	return &config, nil
}

// Default returns the configuration produced by an empty viper instance.
func Default() *Config {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		panic(err)
	}

	return cfg
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Server.Environment != EnvProduction
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
