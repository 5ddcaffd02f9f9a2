// Package engine runs derivation capabilities over caller-supplied stat values.
//
// A computation is a single pass over the applicable capabilities in ascending
// priority. Each capability fills one target definition: numeric formulas
// first, then the result is classified, then transform rules add labels.
// Outputs are fed back as sources so later capabilities can chain on earlier
// ones. Missing data never fails a computation; it falls back to axis defaults
// and is reported as a Diagnostic.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/semstat/internal/domain/classify"
	"github.com/okian/semstat/internal/domain/derivation"
	"github.com/okian/semstat/internal/domain/registry"
	"github.com/okian/semstat/internal/domain/stat"
	"github.com/okian/semstat/pkg/logger"
	"github.com/okian/semstat/pkg/metrics"
)

// Normalized output bounds used by Formula.Normalize.
const (
	normalizeMin = 0.0
	normalizeMax = 100.0
)

// Request is the input of Compute.
type Request struct {
	// StatValues holds known raw values per definition id.
	StatValues map[string]map[string]float64 `json:"stat_values"`
	// PackageIDs selects the active packages. Empty means all.
	PackageIDs []string `json:"package_ids,omitempty"`
	// Excluded lists capability ids that must not run.
	Excluded []string `json:"excluded,omitempty"`
	// AlreadyComputed lists targets to treat as known in addition to the
	// keys of StatValues.
	AlreadyComputed []string `json:"already_computed,omitempty"`
}

// Result is the output of Compute.
type Result struct {
	// Derived maps target definition id to its axis values, "{axis}TierId"
	// and "levelId" labels, and transform outputs.
	Derived     map[string]map[string]stat.Value `json:"derived"`
	Diagnostics []Diagnostic                     `json:"diagnostics,omitempty"`
}

// Engine is stateless apart from its registry and is safe for concurrent use.
type Engine struct {
	registry *registry.Registry
	logger   logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine reading from reg.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{registry: reg, logger: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Normalize classifies values against a registered definition.
func (e *Engine) Normalize(_ context.Context, defID string, values map[string]float64, packageIDs []string) (classify.Result, error) {
	def, ok := e.registry.View().Definition(defID, packageIDs)
	if !ok {
		return classify.Result{}, fmt.Errorf("%w: %s", ErrUnknownDefinition, defID)
	}
	metrics.RecordNormalize(defID)
	return classify.Normalize(values, def), nil
}

// Compute derives every target reachable from req. All registry reads go
// through one snapshot, so concurrent registrations never show up halfway.
func (e *Engine) Compute(ctx context.Context, req Request) Result {
	start := time.Now()
	view := e.registry.View()

	res := Result{Derived: make(map[string]map[string]stat.Value)}
	known := make(map[string]struct{}, len(req.StatValues)+len(req.AlreadyComputed))
	for id := range req.StatValues {
		known[id] = struct{}{}
	}
	for _, id := range req.AlreadyComputed {
		known[id] = struct{}{}
	}
	sources := make(map[string]map[string]float64, len(req.StatValues))
	for id, vals := range req.StatValues {
		sources[id] = vals
	}

	res.Diagnostics = append(res.Diagnostics, inapplicable(view, req)...)

	for _, app := range view.ApplicableDerivations(req.PackageIDs, req.Excluded) {
		c := app.Capability
		if _, ok := known[c.ToDefinition]; ok {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Capability: c.ID, Target: c.ToDefinition, Reason: ReasonTargetKnown,
			})
			continue
		}
		out, numeric, diags, ok := computeOne(view, c, sources, req.PackageIDs)
		res.Diagnostics = append(res.Diagnostics, diags...)
		if !ok {
			continue
		}
		res.Derived[c.ToDefinition] = out
		sources[c.ToDefinition] = numeric
		known[c.ToDefinition] = struct{}{}
		metrics.RecordDerivation(c.ID)
		e.logger.Debug(ctx, "derivation applied",
			logger.String("capability", c.ID),
			logger.String("package", app.PackageID),
			logger.String("target", c.ToDefinition),
		)
	}

	for _, d := range res.Diagnostics {
		metrics.RecordDiagnostic(string(d.Reason))
	}
	metrics.RecordComputation(float64(time.Since(start).Microseconds()) / 1000)
	return res
}

// inapplicable reports capabilities of the active packages that will not run.
func inapplicable(view *registry.View, req Request) []Diagnostic {
	available := view.SemanticTypes(req.PackageIDs)
	excluded := make(map[string]struct{}, len(req.Excluded))
	for _, id := range req.Excluded {
		excluded[id] = struct{}{}
	}
	var out []Diagnostic
	for _, app := range view.Capabilities(req.PackageIDs) {
		c := app.Capability
		d := Diagnostic{Capability: c.ID, Target: c.ToDefinition}
		switch {
		case !c.EnabledByDefault:
			d.Reason = ReasonDisabled
		case contains(excluded, c.ID):
			d.Reason = ReasonExcluded
		default:
			missing := c.MissingTypes(available)
			if len(missing) == 0 {
				continue
			}
			d.Reason = ReasonMissingSemanticTypes
			d.Missing = missing
		}
		out = append(out, d)
	}
	return out
}

// computeOne runs both phases for one capability. It returns the flattened
// output, the numeric part to feed back as a source, and diagnostics. ok is
// false only when the target definition is not among the active packages.
func computeOne(
	view *registry.View,
	c *derivation.Capability,
	sources map[string]map[string]float64,
	packageIDs []string,
) (map[string]stat.Value, map[string]float64, []Diagnostic, bool) {
	target, found := view.Definition(c.ToDefinition, packageIDs)
	if !found {
		return nil, nil, []Diagnostic{{
			Capability: c.ID, Target: c.ToDefinition, Reason: ReasonTargetUnknown,
			Detail: "target definition is not in the active packages",
		}}, false
	}

	var diags []Diagnostic
	raw := make(map[string]float64, len(c.Formulas))
	for _, f := range c.Formulas {
		v, why, ok := evalFormula(view, f, sources, packageIDs)
		if !ok {
			// Clamp fills the axis default.
			diags = append(diags, Diagnostic{
				Capability: c.ID, Target: c.ToDefinition, Reason: ReasonFormulaFallback,
				Axis: f.OutputAxis, Detail: why,
			})
			continue
		}
		raw[f.OutputAxis] = v
	}

	norm := classify.Normalize(raw, target)
	out := norm.Flatten()
	for _, r := range c.Transforms {
		out[r.OutputKey] = r.Evaluate(norm.Values)
	}
	return out, norm.Values, diags, true
}

// evalFormula resolves sources by semantic type and reduces them. When the
// formula cannot be computed it returns the reason instead.
func evalFormula(
	view *registry.View,
	f derivation.Formula,
	sources map[string]map[string]float64,
	packageIDs []string,
) (float64, string, bool) {
	perKey := make([]derivation.Sample, 0, len(f.Sources))
	for _, src := range f.Sources {
		refs := view.AxesBySemanticType(src.SemanticType, packageIDs)
		if len(refs) == 0 {
			return 0, fmt.Sprintf("no axis advertises %s", src.SemanticType), false
		}
		var samples []derivation.Sample
		for _, ref := range refs {
			v, ok := sources[ref.DefinitionID][ref.Axis.Name]
			if !ok || math.IsNaN(v) {
				continue
			}
			samples = append(samples, derivation.Sample{Value: v, Weight: ref.Axis.SemanticWeight})
		}
		combined, ok := derivation.Reduce(f.MultiSource, samples)
		if !ok {
			return 0, fmt.Sprintf("no value for %s", src.SemanticType), false
		}
		w := f.Weight(src.Key)
		if f.Transform == derivation.WeightedAvg {
			perKey = append(perKey, derivation.Sample{Value: combined, Weight: w})
		} else {
			perKey = append(perKey, derivation.Sample{Value: combined * w, Weight: 1})
		}
	}

	v, ok := derivation.Reduce(f.Transform, perKey)
	if !ok {
		return 0, "formula produced no value", false
	}
	v += f.Offset
	if f.Normalize {
		v = math.Max(normalizeMin, math.Min(normalizeMax, v))
	}
	return v, "", true
}

func contains(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}
