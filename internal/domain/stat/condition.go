package stat

import (
	"fmt"
	"strings"
)

// ConditionKind selects which bounds a Condition checks.
type ConditionKind uint8

const (
	// ConditionMin matches value >= Min.
	ConditionMin ConditionKind = iota + 1
	// ConditionMax matches value <= Max.
	ConditionMax
	// ConditionRange matches Min <= value <= Max.
	ConditionRange
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionMin:
		return "min"
	case ConditionMax:
		return "max"
	case ConditionRange:
		return "range"
	default:
		return fmt.Sprintf("ConditionKind(%d)", uint8(k))
	}
}

// ParseConditionKind maps a configuration string to a ConditionKind.
func ParseConditionKind(s string) (ConditionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min":
		return ConditionMin, nil
	case "max":
		return ConditionMax, nil
	case "range":
		return ConditionRange, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownConditionKind, s)
	}
}

// Condition is a predicate over one numeric value.
type Condition struct {
	Kind ConditionKind
	Min  *float64
	Max  *float64
}

// AtLeast returns a min condition.
func AtLeast(v float64) Condition { return Condition{Kind: ConditionMin, Min: &v} }

// AtMost returns a max condition.
func AtMost(v float64) Condition { return Condition{Kind: ConditionMax, Max: &v} }

// Between returns a range condition. Use Validate (or NewCondition) to reject min > max.
func Between(lo, hi float64) Condition { return Condition{Kind: ConditionRange, Min: &lo, Max: &hi} }

// NewCondition builds a Condition from optional bounds and validates it.
// The kind decides which bounds are required; bounds it does not use are dropped.
func NewCondition(kind ConditionKind, lo, hi *float64) (Condition, error) {
	c := Condition{Kind: kind}
	switch kind {
	case ConditionMin:
		c.Min = copyFloat(lo)
	case ConditionMax:
		c.Max = copyFloat(hi)
	case ConditionRange:
		c.Min, c.Max = copyFloat(lo), copyFloat(hi)
	}
	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// Validate checks that the bounds required by Kind are present and ordered.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionMin:
		if c.Min == nil {
			return fmt.Errorf("%w: min condition needs min", ErrMissingConditionField)
		}
	case ConditionMax:
		if c.Max == nil {
			return fmt.Errorf("%w: max condition needs max", ErrMissingConditionField)
		}
	case ConditionRange:
		if c.Min == nil || c.Max == nil {
			return fmt.Errorf("%w: range condition needs min and max", ErrMissingConditionField)
		}
		if *c.Min > *c.Max {
			return fmt.Errorf("%w: %g > %g", ErrInvalidConditionBounds, *c.Min, *c.Max)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownConditionKind, c.Kind)
	}
	return nil
}

// Matches reports whether v satisfies the condition. Invalid conditions never match.
func (c Condition) Matches(v float64) bool {
	switch c.Kind {
	case ConditionMin:
		return c.Min != nil && v >= *c.Min
	case ConditionMax:
		return c.Max != nil && v <= *c.Max
	case ConditionRange:
		return c.Min != nil && c.Max != nil && v >= *c.Min && v <= *c.Max
	default:
		return false
	}
}

func (c Condition) String() string {
	switch c.Kind {
	case ConditionMin:
		return fmt.Sprintf(">= %g", deref(c.Min))
	case ConditionMax:
		return fmt.Sprintf("<= %g", deref(c.Max))
	case ConditionRange:
		return fmt.Sprintf("[%g, %g]", deref(c.Min), deref(c.Max))
	default:
		return c.Kind.String()
	}
}

func (c Condition) clone() Condition {
	return Condition{Kind: c.Kind, Min: copyFloat(c.Min), Max: copyFloat(c.Max)}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
