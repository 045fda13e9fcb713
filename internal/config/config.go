// Package config loads newsprobe settings from defaults, an optional YAML
// file and NEWSPROBE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// NEWSPROBE_STORAGE_DRIVER for storage.driver.
const EnvPrefix = "NEWSPROBE"

// Drivers lists the accepted storage.driver values.
var Drivers = []string{"sqlite", "postgres", "json", "csv", "mongo"}

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Provider ProviderConfig `mapstructure:"provider"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the record backend. DSN is a file path for sqlite,
// json and csv, a connection string for postgres and a URI for mongo.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	CookieJar    bool          `mapstructure:"cookie_jar"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Fingerprint  string        `mapstructure:"fingerprint"`
	ProxyFile    string        `mapstructure:"proxy_file"`
	EnvProxy     bool          `mapstructure:"env_proxy"`
	// RequestsPerMinute of 0 disables pacing.
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
	Jitter            float64 `mapstructure:"jitter"`
}

type ProviderConfig struct {
	// Tables is an optional YAML file overlaying the built-in domain and
	// parameter tables.
	Tables   string `mapstructure:"tables"`
	Endpoint string `mapstructure:"endpoint"`
}

type PipelineConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	Limit       int  `mapstructure:"limit"`
	StopOnBlock bool `mapstructure:"stop_on_block"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// MetricsAddr, when set, serves /metrics on a separate listener.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "newsprobe.db")
	v.SetDefault("storage.database", "newsprobe")
	v.SetDefault("storage.collection", "search_records")

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_redirects", 10)
	v.SetDefault("fetch.cookie_jar", true)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("fetch.fingerprint", "chrome")
	v.SetDefault("fetch.proxy_file", "")
	v.SetDefault("fetch.env_proxy", false)
	v.SetDefault("fetch.requests_per_minute", 20)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.jitter", 0.3)

	v.SetDefault("provider.tables", "")
	v.SetDefault("provider.endpoint", "")

	v.SetDefault("pipeline.concurrency", 3)
	v.SetDefault("pipeline.limit", 0)
	v.SetDefault("pipeline.stop_on_block", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", "")
}

// NewViper returns a viper instance with defaults and environment binding in
// place. Callers may bind command-line flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
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

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Drivers, c.Storage.Driver) {
		errs = append(errs, fmt.Errorf("storage.driver %q not one of %s", c.Storage.Driver, strings.Join(Drivers, ", ")))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is empty"))
	}
	if c.Fetch.Jitter < 0 || c.Fetch.Jitter > 1 {
		errs = append(errs, fmt.Errorf("fetch.jitter %v outside [0, 1]", c.Fetch.Jitter))
	}
	if c.Fetch.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("fetch.requests_per_minute is negative"))
	}
	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, errors.New("pipeline.concurrency must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
