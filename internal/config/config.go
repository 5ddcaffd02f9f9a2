// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/prometheus/common/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BuiltinPackages registers the relationships, personality and mood packages.
	BuiltinPackages bool `koanf:"builtin_packages"`

	// PackageFiles lists YAML package files registered after the builtins.
	PackageFiles []string `koanf:"package_files"`

	// WorldConfig is an optional YAML file of per-definition overrides.
	WorldConfig string `koanf:"world_config"`

	// DefaultPackageIDs is the selection used when a request names none.
	// Empty means every registered package.
	DefaultPackageIDs []string `koanf:"default_package_ids"`

	// BatchConcurrency bounds goroutines per batch computation.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// MaxBatchSize caps requests per batch computation.
	MaxBatchSize int `koanf:"max_batch_size"`

	// MetricsEnabled turns metric recording on. Collectors stay registered
	// either way so /metrics keeps its shape.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every metric name, e.g. semstat_engine_computations_total.
	MetricsNamespace string `koanf:"metrics_namespace"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		BuiltinPackages:  true,
		BatchConcurrency: runtime.NumCPU(),
		MaxBatchSize:     500,
		MetricsEnabled:   true,
		MetricsNamespace: "semstat",
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BatchConcurrency < 1:
		return fmt.Errorf("%w: batch_concurrency must be at least 1", ErrInvalidConfig)
	case c.MaxBatchSize < 1:
		return fmt.Errorf("%w: max_batch_size must be at least 1", ErrInvalidConfig)
	case !model.IsValidLegacyMetricName(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
