// Package derivation describes how one stat definition is computed from
// semantic-typed axes of other definitions: numeric formulas first, then
// categorical transform rules over the computed axes.
//
// The types here are declarative. Resolving sources against registered
// packages and running the two phases is the engine's job.
package derivation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/semstat/internal/domain/stat"
)

// Source binds a formula key to a required semantic type.
type Source struct {
	Key          string
	SemanticType string
}

// Formula computes one output axis of the target definition.
type Formula struct {
	OutputAxis string
	// Sources are combined in declaration order; First picks the earliest.
	Sources []Source
	// Weights per source key. Missing keys weigh 1.
	Weights map[string]float64
	// MultiSource combines several axes that share one semantic type.
	MultiSource Strategy
	// Transform combines the per-key values into the output.
	Transform Strategy
	Offset    float64
	// Normalize clamps the result to [0, 100].
	Normalize bool
}

// Weight returns the declared weight of a source key.
func (f Formula) Weight(key string) float64 {
	if w, ok := f.Weights[key]; ok {
		return w
	}
	return 1
}

// Case is one when/then pair of a TransformRule.
type Case struct {
	// When maps axis name to a condition; all must hold. An empty When always matches.
	When map[string]stat.Condition
	Then stat.Value
}

// TransformRule derives a non-numeric output from computed axis values.
type TransformRule struct {
	OutputKey string
	Cases     []Case
	Default   stat.Value
}

// Evaluate returns the Then of the first matching case, or Default.
// A condition on an axis missing from values does not match.
func (r TransformRule) Evaluate(values map[string]float64) stat.Value {
	for _, c := range r.Cases {
		if caseMatches(c, values) {
			return c.Then
		}
	}
	return r.Default
}

func caseMatches(c Case, values map[string]float64) bool {
	for axis, cond := range c.When {
		v, ok := values[axis]
		if !ok || !cond.Matches(v) {
			return false
		}
	}
	return true
}

// Capability is a package's recipe for computing one definition.
type Capability struct {
	ID string
	// FromSemanticTypes must all be available among the active packages
	// before the capability is considered.
	FromSemanticTypes []string
	ToDefinition      string
	Formulas          []Formula
	Transforms        []TransformRule
	// Priority orders evaluation; lower runs first.
	Priority         int
	EnabledByDefault bool
}

// NewCapability validates c and returns a private copy with sorted, de-duplicated
// requirements.
func NewCapability(c Capability) (*Capability, error) {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return nil, &ValidationError{Kind: ErrEmptyCapabilityID}
	}
	c.ToDefinition = strings.TrimSpace(c.ToDefinition)
	if c.ToDefinition == "" {
		return nil, &ValidationError{Kind: ErrEmptyTarget, CapabilityID: c.ID}
	}

	out := &Capability{
		ID:                c.ID,
		FromSemanticTypes: dedupe(c.FromSemanticTypes),
		ToDefinition:      c.ToDefinition,
		Priority:          c.Priority,
		EnabledByDefault:  c.EnabledByDefault,
	}

	outputs := make(map[string]struct{}, len(c.Formulas))
	for _, f := range c.Formulas {
		nf, err := validateFormula(c.ID, f)
		if err != nil {
			return nil, err
		}
		if _, dup := outputs[nf.OutputAxis]; dup {
			return nil, &ValidationError{Kind: ErrDuplicateOutput, CapabilityID: c.ID, Subject: nf.OutputAxis}
		}
		outputs[nf.OutputAxis] = struct{}{}
		out.Formulas = append(out.Formulas, nf)
	}

	for _, r := range c.Transforms {
		nr, err := validateTransform(c.ID, r)
		if err != nil {
			return nil, err
		}
		out.Transforms = append(out.Transforms, nr)
	}
	return out, nil
}

func validateFormula(capID string, f Formula) (Formula, error) {
	f.OutputAxis = strings.TrimSpace(f.OutputAxis)
	if f.OutputAxis == "" {
		return Formula{}, &ValidationError{Kind: ErrEmptyOutputAxis, CapabilityID: capID}
	}
	if len(f.Sources) == 0 {
		return Formula{}, &ValidationError{Kind: ErrEmptySources, CapabilityID: capID, Subject: f.OutputAxis}
	}
	for _, st := range []Strategy{f.MultiSource, f.Transform} {
		if _, ok := strategyNames[st]; !ok {
			return Formula{}, &ValidationError{Kind: ErrUnknownStrategy, CapabilityID: capID, Subject: f.OutputAxis, Detail: st.String()}
		}
	}
	keys := make(map[string]struct{}, len(f.Sources))
	sources := make([]Source, 0, len(f.Sources))
	for _, s := range f.Sources {
		if strings.TrimSpace(s.Key) == "" || strings.TrimSpace(s.SemanticType) == "" {
			return Formula{}, &ValidationError{Kind: ErrInvalidSource, CapabilityID: capID, Subject: f.OutputAxis}
		}
		if _, dup := keys[s.Key]; dup {
			return Formula{}, &ValidationError{Kind: ErrDuplicateSourceKey, CapabilityID: capID, Subject: f.OutputAxis, Detail: s.Key}
		}
		keys[s.Key] = struct{}{}
		sources = append(sources, s)
	}
	f.Sources = sources

	weights := make(map[string]float64, len(f.Weights))
	for k, w := range f.Weights {
		weights[k] = w
	}
	f.Weights = weights
	return f, nil
}

func validateTransform(capID string, r TransformRule) (TransformRule, error) {
	r.OutputKey = strings.TrimSpace(r.OutputKey)
	if r.OutputKey == "" {
		return TransformRule{}, &ValidationError{Kind: ErrEmptyOutputKey, CapabilityID: capID}
	}
	cases := make([]Case, 0, len(r.Cases))
	for i, c := range r.Cases {
		when := make(map[string]stat.Condition, len(c.When))
		for axis, cond := range c.When {
			if err := cond.Validate(); err != nil {
				return TransformRule{}, &ValidationError{
					Kind: ErrInvalidWhen, CapabilityID: capID, Subject: r.OutputKey,
					Detail: fmt.Sprintf("case %d axis %q: %v", i, axis, err),
				}
			}
			when[axis] = cond
		}
		cases = append(cases, Case{When: when, Then: c.Then})
	}
	r.Cases = cases
	return r, nil
}

// MissingTypes returns the required semantic types absent from available, sorted.
// An empty result means the requirement is satisfied.
func (c *Capability) MissingTypes(available map[string]struct{}) (missing []string) {
	for _, t := range c.FromSemanticTypes {
		if _, ok := available[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

func dedupe(in []string) []string {
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
