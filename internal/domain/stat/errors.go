package stat

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for definition validation. ValidationError unwraps to one of these.
var (
	ErrEmptyDefinitionID      = errors.New("definition id is required")
	ErrEmptyAxisList          = errors.New("definition has no axes")
	ErrEmptyAxisName          = errors.New("axis name is required")
	ErrDuplicateAxisName      = errors.New("duplicate axis name")
	ErrInvalidAxisBounds      = errors.New("axis min exceeds max")
	ErrInvalidAxisDefault     = errors.New("axis default outside [min, max]")
	ErrInvalidSemanticWeight  = errors.New("semantic weight must not be negative")
	ErrEmptyTierID            = errors.New("tier id is required")
	ErrDuplicateTierID        = errors.New("duplicate tier id")
	ErrInvalidTierBounds      = errors.New("tier min exceeds max")
	ErrOverlappingTiers       = errors.New("overlapping tiers")
	ErrUnknownAxisReference   = errors.New("unknown axis reference")
	ErrEmptyLevelID           = errors.New("level id is required")
	ErrDuplicateLevelID       = errors.New("duplicate level id")
	ErrEmptyLevelConditions   = errors.New("level has no conditions")
	ErrInvalidConditionBounds = errors.New("condition min exceeds max")
	ErrMissingConditionField  = errors.New("condition is missing a required bound")
	ErrUnknownConditionKind   = errors.New("unknown condition kind")
)

// ValidationError describes a Definition invariant violation.
type ValidationError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// DefinitionID owns the offending element.
	DefinitionID string
	// Subject is the offending axis, tier or level id.
	Subject string
	// Related names the second party of the violation: the other tier of an
	// overlap, or the unknown axis a tier/level references.
	Related string
	// Detail carries ranges or values for humans.
	Detail string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.DefinitionID != "" {
		fmt.Fprintf(&b, ": definition %q", e.DefinitionID)
	}
	if e.Subject != "" {
		fmt.Fprintf(&b, ": %q", e.Subject)
	}
	if e.Related != "" {
		fmt.Fprintf(&b, " (%q)", e.Related)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(kind error, defID, subject, related, detail string) *ValidationError {
	return &ValidationError{Kind: kind, DefinitionID: defID, Subject: subject, Related: related, Detail: detail}
}
