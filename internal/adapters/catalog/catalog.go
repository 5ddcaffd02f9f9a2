// Package catalog reads stat packages and world overrides from YAML.
//
// Documents are checked against an embedded JSON Schema first, then decoded
// and handed to the domain constructors, which enforce the semantic rules
// (tier overlap, axis references, strategy names).
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/okian/semstat/internal/domain/derivation"
	"github.com/okian/semstat/internal/domain/registry"
	"github.com/okian/semstat/internal/domain/stat"
	"gopkg.in/yaml.v3"
)

type packageDoc struct {
	ID           string          `yaml:"id"`
	Definitions  []definitionDoc `yaml:"definitions"`
	Capabilities []capabilityDoc `yaml:"capabilities"`
}

type definitionDoc struct {
	ID     string     `yaml:"id"`
	Axes   []axisDoc  `yaml:"axes"`
	Tiers  []tierDoc  `yaml:"tiers"`
	Levels []levelDoc `yaml:"levels"`
}

type axisDoc struct {
	Name           string   `yaml:"name"`
	Min            float64  `yaml:"min"`
	Max            float64  `yaml:"max"`
	Default        float64  `yaml:"default"`
	SemanticType   string   `yaml:"semantic_type"`
	SemanticWeight *float64 `yaml:"semantic_weight"`
}

type tierDoc struct {
	ID   string   `yaml:"id"`
	Axis string   `yaml:"axis"`
	Min  float64  `yaml:"min"`
	Max  *float64 `yaml:"max"`
}

type conditionDoc struct {
	Kind string   `yaml:"kind"`
	Min  *float64 `yaml:"min"`
	Max  *float64 `yaml:"max"`
}

type levelDoc struct {
	ID         string                  `yaml:"id"`
	Priority   int                     `yaml:"priority"`
	Conditions map[string]conditionDoc `yaml:"conditions"`
}

type sourceDoc struct {
	Key          string `yaml:"key"`
	SemanticType string `yaml:"semantic_type"`
}

type formulaDoc struct {
	OutputAxis  string              `yaml:"output_axis"`
	Sources     []sourceDoc         `yaml:"sources"`
	Weights     map[string]float64  `yaml:"weights"`
	MultiSource derivation.Strategy `yaml:"multi_source"`
	Transform   derivation.Strategy `yaml:"transform"`
	Offset      float64             `yaml:"offset"`
	Normalize   bool                `yaml:"normalize"`
}

type caseDoc struct {
	When map[string]conditionDoc `yaml:"when"`
	Then any                     `yaml:"then"`
}

type transformDoc struct {
	OutputKey string    `yaml:"output_key"`
	Cases     []caseDoc `yaml:"cases"`
	Default   any       `yaml:"default"`
}

type capabilityDoc struct {
	ID                string         `yaml:"id"`
	FromSemanticTypes []string       `yaml:"from_semantic_types"`
	To                string         `yaml:"to"`
	Priority          int            `yaml:"priority"`
	EnabledByDefault  *bool          `yaml:"enabled_by_default"`
	Formulas          []formulaDoc   `yaml:"formulas"`
	Transforms        []transformDoc `yaml:"transforms"`
}

// LoadPackage reads and parses a package file.
func LoadPackage(path string) (*registry.Package, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParsePackage(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParsePackage builds a package from a YAML document. Nothing is returned
// unless every definition and capability in the document is valid.
func ParsePackage(raw []byte) (*registry.Package, error) {
	if err := validate(packageSchema, raw); err != nil {
		return nil, err
	}
	var doc packageDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	defs := make([]*stat.Definition, 0, len(doc.Definitions))
	for _, dd := range doc.Definitions {
		d, err := dd.toDomain()
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", doc.ID, err)
		}
		defs = append(defs, d)
	}
	caps := make([]*derivation.Capability, 0, len(doc.Capabilities))
	for _, cd := range doc.Capabilities {
		c, err := cd.toDomain()
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", doc.ID, err)
		}
		caps = append(caps, c)
	}
	return registry.NewPackage(doc.ID, defs, caps)
}

func (dd definitionDoc) toDomain() (*stat.Definition, error) {
	axes := make([]stat.Axis, 0, len(dd.Axes))
	for _, a := range dd.Axes {
		ax := stat.NewAxis(a.Name, a.Min, a.Max, a.Default)
		ax.SemanticType = a.SemanticType
		if a.SemanticWeight != nil {
			ax.SemanticWeight = *a.SemanticWeight
		}
		axes = append(axes, ax)
	}
	tiers := make([]stat.Tier, 0, len(dd.Tiers))
	for _, t := range dd.Tiers {
		tiers = append(tiers, stat.Tier{ID: t.ID, AxisName: t.Axis, Min: t.Min, Max: t.Max})
	}
	levels := make([]stat.Level, 0, len(dd.Levels))
	for _, l := range dd.Levels {
		conds, err := conditions(l.Conditions)
		if err != nil {
			return nil, fmt.Errorf("definition %s level %s: %w", dd.ID, l.ID, err)
		}
		levels = append(levels, stat.Level{ID: l.ID, Priority: l.Priority, Conditions: conds})
	}
	return stat.NewDefinition(dd.ID, axes, tiers, levels)
}

func conditions(in map[string]conditionDoc) (map[string]stat.Condition, error) {
	out := make(map[string]stat.Condition, len(in))
	for _, axis := range sortedKeys(in) {
		cd := in[axis]
		kind, err := stat.ParseConditionKind(cd.Kind)
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", axis, err)
		}
		c, err := stat.NewCondition(kind, cd.Min, cd.Max)
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", axis, err)
		}
		out[axis] = c
	}
	return out, nil
}

func (cd capabilityDoc) toDomain() (*derivation.Capability, error) {
	enabled := true
	if cd.EnabledByDefault != nil {
		enabled = *cd.EnabledByDefault
	}
	c := derivation.Capability{
		ID:                cd.ID,
		FromSemanticTypes: cd.FromSemanticTypes,
		ToDefinition:      cd.To,
		Priority:          cd.Priority,
		EnabledByDefault:  enabled,
	}
	for _, fd := range cd.Formulas {
		f := derivation.Formula{
			OutputAxis:  fd.OutputAxis,
			Weights:     fd.Weights,
			MultiSource: fd.MultiSource,
			Transform:   fd.Transform,
			Offset:      fd.Offset,
			Normalize:   fd.Normalize,
		}
		for _, s := range fd.Sources {
			f.Sources = append(f.Sources, derivation.Source{Key: s.Key, SemanticType: s.SemanticType})
		}
		c.Formulas = append(c.Formulas, f)
	}
	for _, td := range cd.Transforms {
		r, err := td.toDomain()
		if err != nil {
			return nil, fmt.Errorf("capability %s: %w", cd.ID, err)
		}
		c.Transforms = append(c.Transforms, r)
	}
	return derivation.NewCapability(c)
}

func (td transformDoc) toDomain() (derivation.TransformRule, error) {
	def, err := stat.ValueOf(td.Default)
	if err != nil {
		return derivation.TransformRule{}, fmt.Errorf("%w: transform %s default: %v", ErrValue, td.OutputKey, err)
	}
	r := derivation.TransformRule{OutputKey: td.OutputKey, Default: def}
	for i, cs := range td.Cases {
		then, err := stat.ValueOf(cs.Then)
		if err != nil {
			return derivation.TransformRule{}, fmt.Errorf("%w: transform %s case %d: %v", ErrValue, td.OutputKey, i, err)
		}
		when, err := conditions(cs.When)
		if err != nil {
			return derivation.TransformRule{}, fmt.Errorf("transform %s case %d: %w", td.OutputKey, i, err)
		}
		r.Cases = append(r.Cases, derivation.Case{When: when, Then: then})
	}
	return r, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
