package engine

import (
	"fmt"
	"strings"
)

// Reason classifies a Diagnostic.
type Reason string

// Diagnostic reasons.
const (
	ReasonMissingSemanticTypes Reason = "missing_semantic_types"
	ReasonExcluded             Reason = "excluded"
	ReasonDisabled             Reason = "disabled"
	ReasonTargetKnown          Reason = "target_known"
	ReasonTargetUnknown        Reason = "target_unknown"
	ReasonFormulaFallback      Reason = "formula_fallback"
)

// Diagnostic explains why a capability, or one of its formulas, produced no
// computed value. Diagnostics are informational; computation never fails.
type Diagnostic struct {
	Capability string   `json:"capability"`
	Target     string   `json:"target"`
	Reason     Reason   `json:"reason"`
	Axis       string   `json:"axis,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "derivation %s -> %s: %s", d.Capability, d.Target, d.Reason)
	if d.Axis != "" {
		fmt.Fprintf(&b, " (axis %s)", d.Axis)
	}
	if len(d.Missing) > 0 {
		fmt.Fprintf(&b, " requires %s", strings.Join(d.Missing, ", "))
	}
	if d.Detail != "" {
		b.WriteString(": " + d.Detail)
	}
	return b.String()
}
