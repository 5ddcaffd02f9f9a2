package derivation

import (
	"fmt"
	"strings"
)

// Strategy reduces a set of weighted samples to one number.
type Strategy uint8

const (
	// WeightedAvg divides the weighted sum by the total weight. It is the default.
	WeightedAvg Strategy = iota
	// First takes the first sample in source order.
	First
	// Max takes the largest sample.
	Max
	// Min takes the smallest sample.
	Min
	// Sum adds the samples.
	Sum
)

var strategyNames = map[Strategy]string{
	WeightedAvg: "weighted_avg",
	First:       "first",
	Max:         "max",
	Min:         "min",
	Sum:         "sum",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy maps a configuration string to a Strategy. Empty means WeightedAvg;
// anything unrecognized is an error rather than a silent fallback.
func ParseStrategy(s string) (Strategy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return WeightedAvg, nil
	}
	for st, n := range strategyNames {
		if n == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	parsed, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Sample is one value with its weight.
type Sample struct {
	Value  float64
	Weight float64
}

// Reduce combines samples. First, Max, Min and Sum ignore weights. WeightedAvg
// falls back to the plain mean when the total weight is zero. Reduce reports
// false for an empty input or an undeclared strategy.
func Reduce(s Strategy, samples []Sample) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	switch s {
	case First:
		return samples[0].Value, true
	case Max:
		m := samples[0].Value
		for _, x := range samples[1:] {
			if x.Value > m {
				m = x.Value
			}
		}
		return m, true
	case Min:
		m := samples[0].Value
		for _, x := range samples[1:] {
			if x.Value < m {
				m = x.Value
			}
		}
		return m, true
	case Sum:
		var total float64
		for _, x := range samples {
			total += x.Value
		}
		return total, true
	case WeightedAvg:
		var sum, weight, plain float64
		for _, x := range samples {
			sum += x.Value * x.Weight
			weight += x.Weight
			plain += x.Value
		}
		if weight == 0 {
			return plain / float64(len(samples)), true
		}
		return sum / weight, true
	default:
		return 0, false
	}
}
