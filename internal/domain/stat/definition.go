// Package stat defines stat systems: axes, tiers, multi-axis levels and the
// Definition that bundles them.
//
// A Definition is validated once, at construction, and is read-only afterwards.
// Everything downstream (classification, derivation) relies on that: tiers on
// one axis never overlap, and every tier and level references a real axis.
package stat

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultSemanticWeight is the weight NewAxis and the package loaders give
// an axis that does not declare one.
const DefaultSemanticWeight = 1.0

// Axis is one numeric dimension of a stat system.
type Axis struct {
	Name         string
	MinValue     float64
	MaxValue     float64
	DefaultValue float64
	// SemanticType tags the axis for cross-package matching, e.g. "positive_sentiment".
	SemanticType string
	// SemanticWeight weighs this axis when several axes share a semantic type.
	// Zero is a real weight: the axis drops out of a weighted_avg unless every
	// contributing axis weighs zero.
	SemanticWeight float64
}

// NewAxis returns an untyped axis carrying DefaultSemanticWeight.
func NewAxis(name string, lo, hi, def float64) Axis {
	return Axis{Name: name, MinValue: lo, MaxValue: hi, DefaultValue: def, SemanticWeight: DefaultSemanticWeight}
}

// Clamp bounds v to the axis range.
func (a Axis) Clamp(v float64) float64 {
	return math.Max(a.MinValue, math.Min(a.MaxValue, v))
}

// Tier is a band over one axis. Max == nil means unbounded above.
type Tier struct {
	ID       string
	AxisName string
	Min      float64
	Max      *float64
}

// NewTier returns a closed tier [lo, hi].
func NewTier(id, axis string, lo, hi float64) Tier {
	return Tier{ID: id, AxisName: axis, Min: lo, Max: &hi}
}

// OpenTier returns a tier [lo, +inf).
func OpenTier(id, axis string, lo float64) Tier {
	return Tier{ID: id, AxisName: axis, Min: lo}
}

// EffectiveMax is Max, or +Inf when the tier is unbounded.
func (t Tier) EffectiveMax() float64 {
	if t.Max == nil {
		return math.Inf(1)
	}
	return *t.Max
}

// Contains reports whether v falls inside the tier.
func (t Tier) Contains(v float64) bool {
	return v >= t.Min && (t.Max == nil || v <= *t.Max)
}

func (t Tier) String() string {
	if t.Max == nil {
		return fmt.Sprintf("%s [%g, inf)", t.ID, t.Min)
	}
	return fmt.Sprintf("%s [%g, %g]", t.ID, t.Min, *t.Max)
}

// Level is a multi-axis classification. Every condition must hold for it to match.
// Levels may overlap; Priority (higher wins) orders the matches.
type Level struct {
	ID         string
	Priority   int
	Conditions map[string]Condition
}

// Definition is a complete, validated stat system.
type Definition struct {
	id        string
	axes      []Axis
	axisIndex map[string]int
	tiers     []Tier
	levels    []Level
}

// NewDefinition validates and builds a Definition. The inputs are copied.
func NewDefinition(id string, axes []Axis, tiers []Tier, levels []Level) (*Definition, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid(ErrEmptyDefinitionID, "", "", "", "")
	}
	if len(axes) == 0 {
		return nil, invalid(ErrEmptyAxisList, id, "", "", "")
	}

	d := &Definition{
		id:        id,
		axes:      make([]Axis, 0, len(axes)),
		axisIndex: make(map[string]int, len(axes)),
	}
	for _, a := range axes {
		if err := validateAxis(id, a); err != nil {
			return nil, err
		}
		if _, dup := d.axisIndex[a.Name]; dup {
			return nil, invalid(ErrDuplicateAxisName, id, a.Name, "", "")
		}
		d.axisIndex[a.Name] = len(d.axes)
		d.axes = append(d.axes, a)
	}

	if err := d.setTiers(tiers); err != nil {
		return nil, err
	}
	if err := d.setLevels(levels); err != nil {
		return nil, err
	}
	return d, nil
}

func validateAxis(defID string, a Axis) error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid(ErrEmptyAxisName, defID, "", "", "")
	}
	if a.MinValue > a.MaxValue {
		return invalid(ErrInvalidAxisBounds, defID, a.Name, "", fmt.Sprintf("%g > %g", a.MinValue, a.MaxValue))
	}
	if a.DefaultValue < a.MinValue || a.DefaultValue > a.MaxValue {
		return invalid(ErrInvalidAxisDefault, defID, a.Name, "",
			fmt.Sprintf("default %g not in [%g, %g]", a.DefaultValue, a.MinValue, a.MaxValue))
	}
	if a.SemanticWeight < 0 {
		return invalid(ErrInvalidSemanticWeight, defID, a.Name, "", fmt.Sprintf("%g", a.SemanticWeight))
	}
	return nil
}

func (d *Definition) setTiers(tiers []Tier) error {
	seen := make(map[string]struct{}, len(tiers))
	byAxis := make(map[string][]Tier)
	d.tiers = make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if strings.TrimSpace(t.ID) == "" {
			return invalid(ErrEmptyTierID, d.id, "", t.AxisName, "")
		}
		if _, dup := seen[t.ID]; dup {
			return invalid(ErrDuplicateTierID, d.id, t.ID, "", "")
		}
		seen[t.ID] = struct{}{}
		if _, ok := d.axisIndex[t.AxisName]; !ok {
			return invalid(ErrUnknownAxisReference, d.id, t.ID, t.AxisName, "tier axis")
		}
		if t.Max != nil && t.Min > *t.Max {
			return invalid(ErrInvalidTierBounds, d.id, t.ID, "", fmt.Sprintf("%g > %g", t.Min, *t.Max))
		}
		t.Max = copyFloat(t.Max)
		d.tiers = append(d.tiers, t)
		byAxis[t.AxisName] = append(byAxis[t.AxisName], t)
	}

	// Check axes in declaration order so the reported overlap is deterministic.
	for _, a := range d.axes {
		if err := checkOverlap(d.id, byAxis[a.Name]); err != nil {
			return err
		}
	}
	return nil
}

// checkOverlap sorts the tiers of one axis by min and requires each tier's
// effective max to stay at or below the next tier's min.
func checkOverlap(defID string, tiers []Tier) error {
	if len(tiers) < 2 {
		return nil
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		if cur.EffectiveMax() > next.Min {
			return invalid(ErrOverlappingTiers, defID, cur.ID, next.ID,
				fmt.Sprintf("%s overlaps %s", cur, next))
		}
	}
	return nil
}

func (d *Definition) setLevels(levels []Level) error {
	seen := make(map[string]struct{}, len(levels))
	d.levels = make([]Level, 0, len(levels))
	for _, l := range levels {
		if strings.TrimSpace(l.ID) == "" {
			return invalid(ErrEmptyLevelID, d.id, "", "", "")
		}
		if _, dup := seen[l.ID]; dup {
			return invalid(ErrDuplicateLevelID, d.id, l.ID, "", "")
		}
		seen[l.ID] = struct{}{}
		if len(l.Conditions) == 0 {
			return invalid(ErrEmptyLevelConditions, d.id, l.ID, "", "")
		}
		conds := make(map[string]Condition, len(l.Conditions))
		for _, axis := range sortedKeys(l.Conditions) {
			c := l.Conditions[axis]
			if _, ok := d.axisIndex[axis]; !ok {
				return invalid(ErrUnknownAxisReference, d.id, l.ID, axis, "level condition axis")
			}
			if err := c.Validate(); err != nil {
				return &ValidationError{Kind: conditionKind(err), DefinitionID: d.id, Subject: l.ID, Related: axis, Detail: err.Error()}
			}
			conds[axis] = c.clone()
		}
		d.levels = append(d.levels, Level{ID: l.ID, Priority: l.Priority, Conditions: conds})
	}
	return nil
}

// conditionKind narrows a Condition.Validate error to its sentinel.
func conditionKind(err error) error {
	for _, k := range []error{ErrInvalidConditionBounds, ErrMissingConditionField, ErrUnknownConditionKind} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInvalidConditionBounds
}

// ID returns the definition id.
func (d *Definition) ID() string { return d.id }

// Axes returns the axes in declaration order.
func (d *Definition) Axes() []Axis {
	out := make([]Axis, len(d.axes))
	copy(out, d.axes)
	return out
}

// Axis looks up an axis by name.
func (d *Definition) Axis(name string) (Axis, bool) {
	i, ok := d.axisIndex[name]
	if !ok {
		return Axis{}, false
	}
	return d.axes[i], true
}

// HasAxis reports whether name is an axis of d.
func (d *Definition) HasAxis(name string) bool {
	_, ok := d.axisIndex[name]
	return ok
}

// Tiers returns the tiers in declaration order.
func (d *Definition) Tiers() []Tier {
	out := make([]Tier, len(d.tiers))
	for i, t := range d.tiers {
		t.Max = copyFloat(t.Max)
		out[i] = t
	}
	return out
}

// Levels returns the levels in declaration order.
func (d *Definition) Levels() []Level {
	out := make([]Level, len(d.levels))
	for i, l := range d.levels {
		conds := make(map[string]Condition, len(l.Conditions))
		for k, c := range l.Conditions {
			conds[k] = c.clone()
		}
		out[i] = Level{ID: l.ID, Priority: l.Priority, Conditions: conds}
	}
	return out
}

// SemanticTypes returns the distinct semantic types advertised by the axes, sorted.
func (d *Definition) SemanticTypes() []string {
	set := make(map[string]struct{})
	for _, a := range d.axes {
		if a.SemanticType != "" {
			set[a.SemanticType] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Defaults returns every axis' default value.
func (d *Definition) Defaults() map[string]float64 {
	out := make(map[string]float64, len(d.axes))
	for _, a := range d.axes {
		out[a.Name] = a.DefaultValue
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
