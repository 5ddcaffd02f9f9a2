package registry

import "errors"

// Sentinel kinds for package construction and registration.
var (
	ErrEmptyPackageID      = errors.New("package id is required")
	ErrNilPackage          = errors.New("package is nil")
	ErrNilDefinition       = errors.New("package definition is nil")
	ErrNilCapability       = errors.New("package capability is nil")
	ErrDuplicateDefinition = errors.New("duplicate definition id in package")
	ErrDuplicateCapability = errors.New("duplicate capability id in package")
	ErrUnknownOutputAxis   = errors.New("capability output is not an axis of its target")
	ErrUnknownDefinition   = errors.New("definition is not registered")
	ErrPackageNotFound     = errors.New("package is not registered")
	ErrDefinitionOwned     = errors.New("definition id is owned by another package")
)
