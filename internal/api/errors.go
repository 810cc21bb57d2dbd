package api

import (
	"errors"
	"net/http"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
	"github.com/ovis-hpc/ldms-registry/internal/registry"
)

// errInvalidArgument classifies a request as malformed input, distinct
// from a schema document that parses but fails its own validation
// (registry.ErrBadSchema); both map to the same status (spec §7).
var errInvalidArgument = errors.New("api: invalid argument")

// statusFor maps a registry/kv error to the HTTP status spec §7
// assigns its kind: SchemaNotFound->404, BadSchema/InvalidArgument->500,
// kv.ErrAllBackendsDown->503. AuthRequired/AuthDenied are
// handled entirely inside internal/auth.Authenticator.Middleware and
// never reach a handler, so they have no entry here.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrSchemaNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrBadSchema),
		errors.Is(err, registry.ErrNameMismatch),
		errors.Is(err, registry.ErrInvalidArgument),
		errors.Is(err, errInvalidArgument):
		return http.StatusInternalServerError
	case errors.Is(err, kv.ErrAllBackendsDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error body with the status statusFor(err)
// assigns, matching the response shape of writeJSON's success path.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSONBody(w, map[string]string{"error": err.Error()})
}
