package statctl

import "errors"

// Sentinel errors for command-line parsing.
var (
	ErrBadAssignment = errors.New("bad assignment")
)
