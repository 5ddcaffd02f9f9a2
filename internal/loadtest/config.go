// Package loadtest drives a running semstat server with generated batch
// requests and checks its answers against an in-process engine.
package loadtest

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Defaults for Config.
const (
	DefaultBaseURL   = "http://localhost:9080"
	DefaultRequests  = 10_000
	DefaultBatchSize = 100
	DefaultTimeout   = 30 * time.Second
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of derivation requests to generate
	BatchSize  int           // Requests per POST /compute/batch
	Workers    int           // Concurrent batches in flight
	Timeout    time.Duration // HTTP request timeout
	Seed       int64         // Generator seed; equal seeds give equal requests
	Verify     bool          // Compare every result with the local engine
	OutputFile string        // Optional JSON dump of the generated requests
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Requests:  DefaultRequests,
		BatchSize: DefaultBatchSize,
		Workers:   runtime.NumCPU() * 2,
		Timeout:   DefaultTimeout,
		Seed:      1,
		Verify:    true,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Requests < 1:
		return fmt.Errorf("%w: requests must be at least 1", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Batches    int
	Succeeded  int
	Failed     int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// RequestsPerSecond is the completed request rate over the run.
func (s Stats) RequestsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Succeeded) / s.Duration.Seconds()
}
