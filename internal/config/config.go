// Package config loads the settings of the kvstore binary from a YAML file,
// KVSTORE_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gozephyr/kvstore"
	"github.com/gozephyr/kvstore/log"
	"github.com/gozephyr/kvstore/metrics"
	"github.com/gozephyr/kvstore/policy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so snapshot.path
// is read from KVSTORE_SNAPSHOT_PATH
const EnvPrefix = "KVSTORE"

// Config represents the complete configuration for kvstore
type Config struct {
	LogLevel        string        `mapstructure:"log_level"`
	MaxSize         int           `mapstructure:"max_size"`
	Policy          string        `mapstructure:"policy"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// SnapshotConfig controls persistence across restarts
type SnapshotConfig struct {
	// Path is loaded on start and written on exit; empty disables snapshots
	Path     string `mapstructure:"path"`
	Compress bool   `mapstructure:"compress"`
}

// MetricsConfig selects the metrics exporter
type MetricsConfig struct {
	Exporter string `mapstructure:"exporter"`
	Name     string `mapstructure:"name"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", string(log.LevelInfo))
	v.SetDefault("max_size", 0)
	v.SetDefault("policy", string(policy.KindLRU))
	v.SetDefault("cleanup_interval", time.Minute)
	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.compress", false)
	v.SetDefault("metrics.exporter", string(metrics.StandardExporter))
	v.SetDefault("metrics.name", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
}

// NewViper returns a viper instance with defaults and environment binding
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// ReadFile reads path into v. With an empty path, kvstore.yaml is looked up
// in the working directory and the home directory, and a missing file is
// not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName("kvstore")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size must not be negative, got %d", c.MaxSize)
	}
	if _, err := policy.ParseKind(c.Policy); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup_interval must not be negative, got %s", c.CleanupInterval)
	}
	switch metrics.ExporterType(c.Metrics.Exporter) {
	case metrics.StandardExporter, metrics.PrometheusExporterType:
	default:
		return fmt.Errorf("metrics.exporter must be %q or %q, got %q",
			metrics.StandardExporter, metrics.PrometheusExporterType, c.Metrics.Exporter)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// Level returns the validated log level
func (c *Config) Level() log.LogLevel {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// NewExporter creates the configured metrics exporter, registering
// Prometheus collectors with reg
func (c *Config) NewExporter(reg prometheus.Registerer) (metrics.Exporter, error) {
	return metrics.NewExporter(metrics.ExporterType(c.Metrics.Exporter), c.Metrics.Name, nil, reg)
}

// StoreOptions converts the configuration into store options
func (c *Config) StoreOptions(exporter metrics.Exporter, logger log.Logger) []kvstore.Option {
	kind, _ := policy.ParseKind(c.Policy)
	return []kvstore.Option{
		kvstore.WithMaxSize(c.MaxSize),
		kvstore.WithPolicy(kind),
		kvstore.WithCleanupInterval(c.CleanupInterval),
		kvstore.WithMetrics(exporter),
		kvstore.WithLogger(logger),
	}
}
