package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/okian/semstat/internal/domain/engine"
	"github.com/okian/semstat/internal/domain/stat"
	"github.com/okian/semstat/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Verifier computes the expected results for a batch locally.
type Verifier interface {
	ComputeBatch(ctx context.Context, reqs []engine.Request) ([]engine.Result, error)
}

// resultOpts treats nil and empty maps and slices alike; JSON drops the
// difference on the way through the server.
var resultOpts = cmp.Options{cmp.AllowUnexported(stat.Value{}), cmpopts.EquateEmpty()}

// Run executes a load run against cfg.BaseURL. When verifier is non-nil and
// cfg.Verify is set every remote result is compared with verifier's.
func Run(ctx context.Context, cfg Config, verifier Verifier, log logger.Logger) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	if log == nil {
		log = logger.Nop()
	}
	stats := Stats{StartTime: time.Now()}

	log.Info(ctx, "starting semstat load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Int("workers", cfg.Workers),
		logger.Bool("verify", cfg.Verify && verifier != nil),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	reqs := Generate(cfg.Seed, cfg.Requests)
	stats.Generated = len(reqs)
	if cfg.OutputFile != "" {
		if err := saveRequests(cfg.OutputFile, reqs); err != nil {
			log.Warn(ctx, "failed to save requests to file", logger.Error(err))
		}
	}

	var succeeded, failed, mismatched, batches atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for start := 0; start < len(reqs); start += cfg.BatchSize {
		chunk := reqs[start:min(start+cfg.BatchSize, len(reqs))]
		g.Go(func() error {
			batches.Add(1)
			got, err := client.ComputeBatch(gctx, chunk)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(int64(len(chunk)))
				log.Debug(gctx, "batch failed", logger.Error(err))
				return nil
			}
			succeeded.Add(int64(len(got)))
			if !cfg.Verify || verifier == nil {
				return nil
			}
			want, err := verifier.ComputeBatch(gctx, chunk)
			if err != nil {
				return fmt.Errorf("local computation: %w", err)
			}
			for i := range want {
				if diff := cmp.Diff(want[i], got[i], resultOpts); diff != "" {
					mismatched.Add(1)
					log.Warn(gctx, "result mismatch", logger.String("diff", diff))
				}
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Batches = int(batches.Load())
	stats.Succeeded = int(succeeded.Load())
	stats.Failed = int(failed.Load())
	stats.Mismatched = int(mismatched.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	switch {
	case err != nil:
		return stats, err
	case stats.Mismatched > 0:
		return stats, fmt.Errorf("%w: %d of %d", ErrMismatch, stats.Mismatched, stats.Succeeded)
	case stats.Failed > 0:
		return stats, fmt.Errorf("%w: %d requests failed", ErrStatus, stats.Failed)
	}
	return stats, nil
}

func saveRequests(path string, reqs []engine.Request) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal requests: %w", err)
	}
	return os.WriteFile(path, b, filePermission)
}

func logStats(ctx context.Context, log logger.Logger, s Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("generated", s.Generated),
		logger.Int("batches", s.Batches),
		logger.Int("succeeded", s.Succeeded),
		logger.Int("failed", s.Failed),
		logger.Int("mismatched", s.Mismatched),
		logger.String("duration", s.Duration.String()),
		logger.Float64("requestsPerSecond", s.RequestsPerSecond()),
	)
}
