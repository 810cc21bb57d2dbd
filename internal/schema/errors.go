package schema

import "errors"

// Sentinel errors returned by Parse (spec §4.1, §7). Compatible
// reports a bool and returns none of them.
var (
	ErrMissingField        = errors.New("schema: missing required field")
	ErrUnknownType         = errors.New("schema: unknown or unsupported value type")
	ErrDuplicateFieldName  = errors.New("schema: duplicate field name")
	ErrUnsupportedTopLevel = errors.New("schema: top-level document must be of type record")
	ErrDanglingRecordRef   = errors.New("schema: record array references an unknown record field")
)
