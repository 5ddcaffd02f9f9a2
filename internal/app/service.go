// Package service owns the package registry and derivation engine and
// implements the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/semstat/internal/adapters/catalog"
	"github.com/okian/semstat/internal/builtin"
	"github.com/okian/semstat/internal/domain/classify"
	"github.com/okian/semstat/internal/domain/engine"
	"github.com/okian/semstat/internal/domain/registry"
	"github.com/okian/semstat/pkg/logger"
	"github.com/okian/semstat/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Service exposes normalize and compute over the registered packages.
type Service struct {
	mu sync.RWMutex

	registry *registry.Registry
	engine   *engine.Engine

	// Configuration
	builtins          bool
	packageFiles      []string
	worldConfig       string
	defaultPackageIDs []string
	batchConcurrency  int
	maxBatchSize      int

	// State
	started      bool
	startedAt    time.Time
	computations atomic.Int64
	normalized   atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBuiltinPackages toggles registration of the builtin packages.
func WithBuiltinPackages(enabled bool) Option {
	return func(s *Service) {
		s.builtins = enabled
	}
}

// WithPackageFiles registers YAML package files at start, after the builtins.
func WithPackageFiles(paths []string) Option {
	return func(s *Service) {
		s.packageFiles = append([]string(nil), paths...)
	}
}

// WithWorldConfig applies a YAML world override file at start.
func WithWorldConfig(path string) Option {
	return func(s *Service) {
		s.worldConfig = path
	}
}

// WithDefaultPackageIDs sets the package selection used when a request names none.
func WithDefaultPackageIDs(ids []string) Option {
	return func(s *Service) {
		s.defaultPackageIDs = append([]string(nil), ids...)
	}
}

// WithBatchConcurrency bounds the goroutines used by ComputeBatch.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithMaxBatchSize bounds the number of requests per ComputeBatch call.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithRegistry injects an existing registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Service) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		builtins:         true,
		batchConcurrency: runtime.NumCPU(),
		maxBatchSize:     500,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.registry == nil {
		s.registry = registry.New(registry.WithLogger(s.logger.Named("registry")))
	}
	s.engine = engine.New(s.registry, engine.WithLogger(s.logger.Named("engine")))
	return s
}

// Start loads packages and world overrides. A failure leaves the service
// stopped; packages registered before the failure stay registered.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting stat service...")

	if s.builtins {
		if err := builtin.Register(ctx, s.registry); err != nil {
			metrics.RecordErrorByComponent("builtin", "register")
			return fmt.Errorf("register builtin packages: %w", err)
		}
	}
	for _, path := range s.packageFiles {
		p, err := catalog.LoadPackage(path)
		if err != nil {
			metrics.RecordErrorByComponent("catalog", "load")
			return fmt.Errorf("load package: %w", err)
		}
		if err := s.registry.Register(ctx, p); err != nil {
			return fmt.Errorf("register package %s: %w", p.ID(), err)
		}
	}
	if s.worldConfig != "" {
		cfg, err := catalog.LoadWorldConfig(s.worldConfig)
		if err != nil {
			metrics.RecordErrorByComponent("catalog", "load")
			return fmt.Errorf("load world config: %w", err)
		}
		if err := s.registry.ApplyWorldConfig(ctx, cfg); err != nil {
			metrics.RecordErrorByComponent("registry", "world_config")
			return fmt.Errorf("apply world config: %w", err)
		}
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "stat service started",
		logger.Int("packages", len(s.registry.Packages())),
		logger.Int("batchConcurrency", s.batchConcurrency),
		logger.Int("maxBatchSize", s.maxBatchSize),
	)
	return nil
}

// Stop marks the service stopped. Registered packages are kept.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "stat service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Registry returns the underlying registry.
func (s *Service) Registry() *registry.Registry { return s.registry }

// RegisterPackage adds or replaces a package while running.
func (s *Service) RegisterPackage(ctx context.Context, p *registry.Package) error {
	return s.registry.Register(ctx, p)
}

func (s *Service) packageIDs(ids []string) []string {
	if len(ids) == 0 {
		return s.defaultPackageIDs
	}
	return ids
}

// Normalize classifies raw values against a registered definition.
func (s *Service) Normalize(ctx context.Context, defID string, values map[string]float64, packageIDs []string) (classify.Result, error) {
	if !s.isStarted() {
		return classify.Result{}, ErrNotStarted
	}
	r, err := s.engine.Normalize(ctx, defID, values, s.packageIDs(packageIDs))
	if err != nil {
		return classify.Result{}, err
	}
	s.normalized.Add(1)
	return r, nil
}

// ComputeDerivations runs one derivation pass.
func (s *Service) ComputeDerivations(ctx context.Context, req engine.Request) (engine.Result, error) {
	if !s.isStarted() {
		return engine.Result{}, ErrNotStarted
	}
	req.PackageIDs = s.packageIDs(req.PackageIDs)
	res := s.engine.Compute(ctx, req)
	s.computations.Add(1)
	for _, d := range res.Diagnostics {
		s.logger.Debug(ctx, "derivation diagnostic",
			logger.String("capability", d.Capability),
			logger.String("reason", string(d.Reason)),
			logger.String("detail", d.String()),
		)
	}
	return res, nil
}

// ComputeBatch runs independent computations concurrently. Results keep the
// order of reqs. Cancelling ctx stops scheduling further requests.
func (s *Service) ComputeBatch(ctx context.Context, reqs []engine.Request) ([]engine.Result, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(reqs) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(reqs), s.maxBatchSize)
	}
	metrics.RecordBatch(len(reqs))

	out := make([]engine.Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.ComputeDerivations(gctx, reqs[i])
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PackageInfo summarizes a registered package.
type PackageInfo struct {
	ID            string   `json:"id"`
	Definitions   []string `json:"definitions"`
	Capabilities  []string `json:"capabilities"`
	SemanticTypes []string `json:"semantic_types"`
}

// Packages lists registered packages in registration order.
func (s *Service) Packages() []PackageInfo {
	pkgs := s.registry.Packages()
	out := make([]PackageInfo, 0, len(pkgs))
	for _, p := range pkgs {
		info := PackageInfo{ID: p.ID(), SemanticTypes: p.SemanticTypes()}
		for _, d := range p.Definitions() {
			info.Definitions = append(info.Definitions, d.ID())
		}
		for _, c := range p.Capabilities() {
			info.Capabilities = append(info.Capabilities, c.ID)
		}
		out = append(out, info)
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"batchConcurrency": s.batchConcurrency,
		"maxBatchSize":     s.maxBatchSize,
		"packages":         len(s.registry.Packages()),
		"registryVersion":  s.registry.Version(),
		"computations":     s.computations.Load(),
		"normalizations":   s.normalized.Load(),
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	return stats
}
