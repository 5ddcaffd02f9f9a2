package catalog

import "errors"

// Sentinel kinds for catalog errors. Domain validation failures are returned
// wrapped as they are, so errors.Is still matches stat and derivation kinds.
var (
	ErrDecode = errors.New("catalog document is not valid YAML")
	ErrSchema = errors.New("catalog document does not match its schema")
	ErrValue  = errors.New("catalog value is invalid")
)
