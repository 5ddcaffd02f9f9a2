// Package classify turns raw axis values into clamped values, per-axis tiers
// and a priority-ranked multi-axis level.
//
// Nothing here fails: out-of-range input is clamped, missing input falls back to
// axis defaults. Only stat.NewDefinition can reject configuration.
package classify

import (
	"math"
	"sort"

	"github.com/okian/semstat/internal/domain/stat"
)

// Result keys used by Flatten.
const (
	TierSuffix = "TierId"
	LevelKey   = "levelId"
)

// Result is the outcome of Normalize.
type Result struct {
	// Values holds one clamped value per axis of the definition.
	Values map[string]float64
	// Tiers maps axis name to the matching tier id. Axes without a match are absent.
	Tiers map[string]string
	// LevelID is the highest-priority matching level, "" when none matched.
	LevelID string
	// Levels lists every matching level, highest priority first.
	Levels []string
}

// Flatten merges values, "{axis}TierId" labels and "levelId" into one map.
func (r Result) Flatten() map[string]stat.Value {
	out := make(map[string]stat.Value, len(r.Values)+len(r.Tiers)+1)
	for axis, v := range r.Values {
		out[axis] = stat.Numeric(v)
	}
	for axis, tier := range r.Tiers {
		out[axis+TierSuffix] = stat.Label(tier)
	}
	if r.LevelID != "" {
		out[LevelKey] = stat.Label(r.LevelID)
	}
	return out
}

// Clamp returns one value per axis of def: the supplied value, or the axis
// default when absent or NaN, bounded to [MinValue, MaxValue]. Keys that are
// not axes of def are dropped.
func Clamp(values map[string]float64, def *stat.Definition) map[string]float64 {
	axes := def.Axes()
	out := make(map[string]float64, len(axes))
	for _, a := range axes {
		v, ok := values[a.Name]
		if !ok || math.IsNaN(v) {
			v = a.DefaultValue
		}
		out[a.Name] = a.Clamp(v)
	}
	return out
}

// ComputeTier returns the tier on axis that contains value. Definitions reject
// overlapping tiers, so the only possible double match is a shared boundary
// (one tier's max equal to the next one's min); declaration order decides it.
func ComputeTier(axis string, value float64, tiers []stat.Tier) (string, bool) {
	for _, t := range tiers {
		if t.AxisName == axis && t.Contains(value) {
			return t.ID, true
		}
	}
	return "", false
}

// ComputeLevel returns the primary matching level and all matches sorted by
// priority descending. Equal priorities keep declaration order. Axes missing
// from values read as 0.
func ComputeLevel(values map[string]float64, levels []stat.Level) (string, []string) {
	type match struct {
		id       string
		priority int
	}
	var matches []match
	for _, l := range levels {
		if levelMatches(values, l) {
			matches = append(matches, match{id: l.ID, priority: l.Priority})
		}
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].priority > matches[j].priority })
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids[0], ids
}

func levelMatches(values map[string]float64, l stat.Level) bool {
	for axis, c := range l.Conditions {
		if !c.Matches(values[axis]) {
			return false
		}
	}
	return true
}

// Normalize clamps values, then computes per-axis tiers and the level.
func Normalize(values map[string]float64, def *stat.Definition) Result {
	clamped := Clamp(values, def)
	tiers := def.Tiers()
	r := Result{
		Values: clamped,
		Tiers:  make(map[string]string),
	}
	for _, a := range def.Axes() {
		if id, ok := ComputeTier(a.Name, clamped[a.Name], tiers); ok {
			r.Tiers[a.Name] = id
		}
	}
	r.LevelID, r.Levels = ComputeLevel(clamped, def.Levels())
	return r
}
