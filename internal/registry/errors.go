package registry

import "errors"

// Sentinel errors for the registry layer (spec §7).
// These allow handlers to check error types with errors.Is() instead of string matching.
var (
	ErrSchemaNotFound  = errors.New("registry: schema not found")
	ErrBadSchema       = errors.New("registry: schema document is invalid")
	ErrNameMismatch    = errors.New("registry: schema name does not match path")
	ErrInvalidArgument = errors.New("registry: invalid argument")
)
