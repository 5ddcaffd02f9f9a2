package stat

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags a Value.
type ValueKind uint8

const (
	// KindNumeric marks an axis value.
	KindNumeric ValueKind = iota
	// KindLabel marks a categorical value: tier ids, level ids, transform labels.
	KindLabel
)

// Value is either a number or a label. The zero Value is Numeric(0).
type Value struct {
	kind  ValueKind
	num   float64
	label string
}

// Numeric wraps a number.
func Numeric(f float64) Value { return Value{kind: KindNumeric, num: f} }

// Label wraps a label.
func Label(s string) Value { return Value{kind: KindLabel, label: s} }

// Kind returns the tag.
func (v Value) Kind() ValueKind { return v.kind }

// Float returns the number and true for numeric values.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumeric }

// Text returns the label and true for label values.
func (v Value) Text() (string, bool) { return v.label, v.kind == KindLabel }

func (v Value) String() string {
	if v.kind == KindLabel {
		return v.label
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// MarshalJSON writes numbers as JSON numbers and labels as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindLabel {
		return json.Marshal(v.label)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded scalar (JSON or YAML) into a Value.
func ValueOf(raw any) (Value, error) {
	switch x := raw.(type) {
	case float64:
		return Numeric(x), nil
	case float32:
		return Numeric(float64(x)), nil
	case int:
		return Numeric(float64(x)), nil
	case int64:
		return Numeric(float64(x)), nil
	case string:
		return Label(x), nil
	default:
		return Value{}, fmt.Errorf("value must be a number or a string, got %T", raw)
	}
}
