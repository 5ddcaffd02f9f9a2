package stat

// WorldStatsConfig is a per-world set of overrides over package definitions.
type WorldStatsConfig struct {
	Version     int
	Definitions map[string]DefinitionOverride
}

// DefinitionOverride replaces fields of a base Definition. Elements are
// matched by axis name, tier id and level id; unmatched elements are appended.
// Nil fields inherit from the base.
type DefinitionOverride struct {
	Axes   []AxisOverride
	Tiers  []TierOverride
	Levels []LevelOverride
}

// AxisOverride overrides one axis.
type AxisOverride struct {
	Name           string
	MinValue       *float64
	MaxValue       *float64
	DefaultValue   *float64
	SemanticType   *string
	SemanticWeight *float64
}

// TierOverride overrides one tier. Unbounded drops an inherited Max.
type TierOverride struct {
	ID        string
	AxisName  *string
	Min       *float64
	Max       *float64
	Unbounded bool
}

// LevelOverride overrides one level. Non-nil Conditions replace the whole set.
type LevelOverride struct {
	ID         string
	Priority   *int
	Conditions map[string]Condition
}

// MergeDefinition applies o over base and re-validates the result, so a bad
// override fails exactly like a bad definition.
func MergeDefinition(base *Definition, o DefinitionOverride) (*Definition, error) {
	axes := base.Axes()
	axisAt := make(map[string]int, len(axes))
	for i, a := range axes {
		axisAt[a.Name] = i
	}
	for _, ao := range o.Axes {
		i, ok := axisAt[ao.Name]
		if !ok {
			axes = append(axes, NewAxis(ao.Name, 0, 0, 0))
			i = len(axes) - 1
			axisAt[ao.Name] = i
		}
		a := &axes[i]
		if ao.MinValue != nil {
			a.MinValue = *ao.MinValue
		}
		if ao.MaxValue != nil {
			a.MaxValue = *ao.MaxValue
		}
		if ao.DefaultValue != nil {
			a.DefaultValue = *ao.DefaultValue
		}
		if ao.SemanticType != nil {
			a.SemanticType = *ao.SemanticType
		}
		if ao.SemanticWeight != nil {
			a.SemanticWeight = *ao.SemanticWeight
		}
	}

	tiers := base.Tiers()
	tierAt := make(map[string]int, len(tiers))
	for i, t := range tiers {
		tierAt[t.ID] = i
	}
	for _, to := range o.Tiers {
		i, ok := tierAt[to.ID]
		if !ok {
			tiers = append(tiers, Tier{ID: to.ID})
			i = len(tiers) - 1
			tierAt[to.ID] = i
		}
		t := &tiers[i]
		if to.AxisName != nil {
			t.AxisName = *to.AxisName
		}
		if to.Min != nil {
			t.Min = *to.Min
		}
		switch {
		case to.Unbounded:
			t.Max = nil
		case to.Max != nil:
			t.Max = copyFloat(to.Max)
		}
	}

	levels := base.Levels()
	levelAt := make(map[string]int, len(levels))
	for i, l := range levels {
		levelAt[l.ID] = i
	}
	for _, lo := range o.Levels {
		i, ok := levelAt[lo.ID]
		if !ok {
			levels = append(levels, Level{ID: lo.ID})
			i = len(levels) - 1
			levelAt[lo.ID] = i
		}
		l := &levels[i]
		if lo.Priority != nil {
			l.Priority = *lo.Priority
		}
		if lo.Conditions != nil {
			l.Conditions = lo.Conditions
		}
	}

	return NewDefinition(base.ID(), axes, tiers, levels)
}
