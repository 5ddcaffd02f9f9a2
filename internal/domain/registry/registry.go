// Package registry holds the set of registered stat packages and answers the
// cross-package queries the engine needs: available semantic types, axes by
// semantic type, and which derivations may run.
//
// Readers never lock. Every mutation builds a new immutable View and publishes
// it with an atomic pointer swap, so a computation that grabbed a View keeps a
// consistent picture even while packages are being replaced.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/semstat/internal/domain/stat"
	"github.com/okian/semstat/pkg/logger"
	"github.com/okian/semstat/pkg/metrics"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex // serializes writers
	view   atomic.Pointer[View]
	logger logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration events.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.view.Store(&View{byID: map[string]*Package{}})
	return r
}

// View returns the current immutable snapshot.
func (r *Registry) View() *View { return r.view.Load() }

// Version increments on every successful mutation.
func (r *Registry) Version() uint64 { return r.View().version }

// Register adds p. A package with the same id is replaced in place, keeping its
// registration position, and a warning is logged. A definition id belongs to
// one package at a time; p is rejected if another package already declares
// any of its definitions.
func (r *Registry) Register(ctx context.Context, p *Package) error {
	if p == nil {
		return ErrNilPackage
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.View()
	if owner, defID, taken := cur.definitionOwner(p); taken {
		return fmt.Errorf("%w: package %q definition %q belongs to %q", ErrDefinitionOwned, p.id, defID, owner)
	}
	next := cur.clone()
	if _, exists := cur.byID[p.id]; exists {
		r.logger.Warn(ctx, "replacing registered package", logger.String("package", p.id))
	} else {
		next.order = append(next.order, p.id)
	}
	next.byID[p.id] = p
	r.publish(ctx, "register", next)
	r.logger.Info(ctx, "package registered",
		logger.String("package", p.id),
		logger.Int("definitions", len(p.defs)),
		logger.Int("capabilities", len(p.caps)),
	)
	return nil
}

// Unregister removes a package. It reports whether the package existed.
func (r *Registry) Unregister(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.View()
	if _, ok := cur.byID[id]; !ok {
		return false
	}
	next := cur.clone()
	delete(next.byID, id)
	order := next.order[:0]
	for _, pid := range cur.order {
		if pid != id {
			order = append(order, pid)
		}
	}
	next.order = order
	r.publish(ctx, "unregister", next)
	r.logger.Info(ctx, "package unregistered", logger.String("package", id))
	return true
}

// ApplyWorldConfig merges per-definition overrides into the registered
// definitions. Either every override applies or none does.
func (r *Registry) ApplyWorldConfig(ctx context.Context, cfg stat.WorldStatsConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.View()
	next := cur.clone()
	for _, defID := range sortedKeys(cfg.Definitions) {
		var touched bool
		for _, pid := range cur.order {
			p := next.byID[pid]
			base, ok := p.Definition(defID)
			if !ok {
				continue
			}
			merged, err := stat.MergeDefinition(base, cfg.Definitions[defID])
			if err != nil {
				return fmt.Errorf("world config version %d: %w", cfg.Version, err)
			}
			np, err := p.withDefinition(merged)
			if err != nil {
				return fmt.Errorf("world config version %d: %w", cfg.Version, err)
			}
			next.byID[pid] = np
			touched = true
		}
		if !touched {
			return fmt.Errorf("%w: %s", ErrUnknownDefinition, defID)
		}
	}
	r.publish(ctx, "world_config", next)
	r.logger.Info(ctx, "world config applied",
		logger.Int("version", cfg.Version),
		logger.Int("definitions", len(cfg.Definitions)),
	)
	return nil
}

func (r *Registry) publish(_ context.Context, op string, next *View) {
	next.version = r.View().version + 1
	r.view.Store(next)
	metrics.UpdateRegistry(op, len(next.order), next.version)
}

// Package returns a registered package.
func (r *Registry) Package(id string) (*Package, bool) { return r.View().Package(id) }

// Packages returns registered packages in registration order.
func (r *Registry) Packages() []*Package { return r.View().Packages() }

// SemanticTypes delegates to the current View.
func (r *Registry) SemanticTypes(packageIDs []string) map[string]struct{} {
	return r.View().SemanticTypes(packageIDs)
}

// AxesBySemanticType delegates to the current View.
func (r *Registry) AxesBySemanticType(semanticType string, packageIDs []string) []AxisRef {
	return r.View().AxesBySemanticType(semanticType, packageIDs)
}

// ApplicableDerivations delegates to the current View.
func (r *Registry) ApplicableDerivations(packageIDs, excluded []string) []Applicable {
	return r.View().ApplicableDerivations(packageIDs, excluded)
}

// Definition delegates to the current View.
func (r *Registry) Definition(defID string, packageIDs []string) (*stat.Definition, bool) {
	return r.View().Definition(defID, packageIDs)
}
