package derivation

import (
	"errors"
	"fmt"
)

// Sentinel kinds for capability validation.
var (
	ErrEmptyCapabilityID  = errors.New("capability id is required")
	ErrEmptyTarget        = errors.New("capability target definition is required")
	ErrUnknownStrategy    = errors.New("unknown combination strategy")
	ErrEmptyOutputAxis    = errors.New("formula output axis is required")
	ErrDuplicateOutput    = errors.New("duplicate formula output axis")
	ErrEmptySources       = errors.New("formula has no sources")
	ErrInvalidSource      = errors.New("formula source needs a key and a semantic type")
	ErrDuplicateSourceKey = errors.New("duplicate formula source key")
	ErrEmptyOutputKey     = errors.New("transform output key is required")
	ErrInvalidWhen        = errors.New("invalid transform condition")
)

// ValidationError reports an invalid capability element.
type ValidationError struct {
	Kind         error
	CapabilityID string
	// Subject is the formula output axis or transform output key at fault.
	Subject string
	Detail  string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%v: capability %q", e.Kind, e.CapabilityID)
	if e.Subject != "" {
		msg += fmt.Sprintf(": %q", e.Subject)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Kind }
