package loadtest

import "errors"

// Sentinel errors for load runs.
var (
	ErrInvalidConfig = errors.New("invalid load test config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrStatus        = errors.New("unexpected response status")
	ErrMismatch      = errors.New("remote results differ from local engine")
)
