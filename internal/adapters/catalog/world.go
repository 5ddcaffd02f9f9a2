package catalog

import (
	"fmt"
	"os"

	"github.com/okian/semstat/internal/domain/stat"
	"gopkg.in/yaml.v3"
)

type worldDoc struct {
	Version     int                    `yaml:"version"`
	Definitions map[string]overrideDoc `yaml:"definitions"`
}

type overrideDoc struct {
	Axes []struct {
		Name           string   `yaml:"name"`
		Min            *float64 `yaml:"min"`
		Max            *float64 `yaml:"max"`
		Default        *float64 `yaml:"default"`
		SemanticType   *string  `yaml:"semantic_type"`
		SemanticWeight *float64 `yaml:"semantic_weight"`
	} `yaml:"axes"`
	Tiers []struct {
		ID        string   `yaml:"id"`
		Axis      *string  `yaml:"axis"`
		Min       *float64 `yaml:"min"`
		Max       *float64 `yaml:"max"`
		Unbounded bool     `yaml:"unbounded"`
	} `yaml:"tiers"`
	Levels []struct {
		ID         string                  `yaml:"id"`
		Priority   *int                    `yaml:"priority"`
		Conditions map[string]conditionDoc `yaml:"conditions"`
	} `yaml:"levels"`
}

// LoadWorldConfig reads and parses a world override file.
func LoadWorldConfig(path string) (stat.WorldStatsConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return stat.WorldStatsConfig{}, err
	}
	cfg, err := ParseWorldConfig(b)
	if err != nil {
		return stat.WorldStatsConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseWorldConfig decodes per-definition overrides. Overrides are not merged
// here; registry.ApplyWorldConfig does that against the registered packages.
func ParseWorldConfig(raw []byte) (stat.WorldStatsConfig, error) {
	if err := validate(worldSchema, raw); err != nil {
		return stat.WorldStatsConfig{}, err
	}
	var doc worldDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return stat.WorldStatsConfig{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	cfg := stat.WorldStatsConfig{
		Version:     doc.Version,
		Definitions: make(map[string]stat.DefinitionOverride, len(doc.Definitions)),
	}
	for _, id := range sortedKeys(doc.Definitions) {
		od := doc.Definitions[id]
		var o stat.DefinitionOverride
		for _, a := range od.Axes {
			o.Axes = append(o.Axes, stat.AxisOverride{
				Name: a.Name, MinValue: a.Min, MaxValue: a.Max, DefaultValue: a.Default,
				SemanticType: a.SemanticType, SemanticWeight: a.SemanticWeight,
			})
		}
		for _, t := range od.Tiers {
			o.Tiers = append(o.Tiers, stat.TierOverride{
				ID: t.ID, AxisName: t.Axis, Min: t.Min, Max: t.Max, Unbounded: t.Unbounded,
			})
		}
		for _, l := range od.Levels {
			lo := stat.LevelOverride{ID: l.ID, Priority: l.Priority}
			if l.Conditions != nil {
				conds, err := conditions(l.Conditions)
				if err != nil {
					return stat.WorldStatsConfig{}, fmt.Errorf("definition %s level %s: %w", id, l.ID, err)
				}
				lo.Conditions = conds
			}
			o.Levels = append(o.Levels, lo)
		}
		cfg.Definitions[id] = o
	}
	return cfg, nil
}
