// Package config loads server configuration from defaults, an optional file and the environment
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. IRONBLOBS_SERVER_ADDR
const EnvPrefix = "IRONBLOBS"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Listing ListingConfig `mapstructure:"listing"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// ListingConfig bounds what a browser may ask of the storage service
type ListingConfig struct {
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	Burst           int           `mapstructure:"burst"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	// Key seals the connection cookie. It must be 32 bytes; empty generates an ephemeral key.
	Key string        `mapstructure:"key"`
	TTL time.Duration `mapstructure:"ttl"`
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("listing.default_page_size", 10)
	v.SetDefault("listing.max_page_size", 5000)
	v.SetDefault("listing.rate_limit", 10.0)
	v.SetDefault("listing.burst", 5)
	v.SetDefault("listing.timeout", "30s")
	v.SetDefault("session.key", "")
	v.SetDefault("session.ttl", "30m")
}

// Load reads configuration into v. path may be empty, in which case only defaults
// and environment variables apply.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Listing.DefaultPageSize <= 0 {
		errs = append(errs, errors.New("listing.default_page_size must be positive"))
	}
	if c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		errs = append(errs, errors.New("listing.max_page_size must not be below listing.default_page_size"))
	}
	if c.Listing.RateLimit < 0 {
		errs = append(errs, errors.New("listing.rate_limit must not be negative"))
	}
	if c.Session.Key != "" && len(c.Session.Key) != 32 {
		errs = append(errs, errors.New("session.key must be exactly 32 bytes"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	return errors.Join(errs...)
}
