package engine

import "errors"

// Sentinel kinds for engine lookups.
var (
	ErrUnknownDefinition = errors.New("definition is not registered")
)
