package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ovis-hpc/ldms-registry/internal/metrics"
	"github.com/ovis-hpc/ldms-registry/internal/registry"
	"github.com/ovis-hpc/ldms-registry/internal/schema"
)

// maxBodyBytes bounds a request body read; a schema document has no
// legitimate reason to approach this.
const maxBodyBytes = 4 << 20

// Handler implements spec §4.4's HTTP surface over a registry.Store.
// Grounded on original_source/src/maestro/schema_registry.py's Flask
// blueprint (index_POST, schemas_ids_id_GET/DEL, names_GET/DEL,
// names_name_versions_GET/POST, digests_GET, digests_digest_versions_GET),
// rewritten as chi handler methods in the teacher's handler-struct style.
type Handler struct {
	store   *registry.Store
	metrics *metrics.Metrics
}

// NewHandler builds a Handler over store. m may be nil.
func NewHandler(store *registry.Store, m *metrics.Metrics) *Handler {
	return &Handler{store: store, metrics: m}
}

// HealthCheck answers a plain liveness probe; the registry has no
// deeper readiness dependency worth distinguishing (a single KV
// Proxy already fails over internally).
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, map[string]string{"status": "ok"})
}

// AddSchema handles POST / (spec §4.4): body is either
// {"schema": {...}} or a bare schema document, added unconditionally.
func (h *Handler) AddSchema(w http.ResponseWriter, r *http.Request) {
	doc, err := readSchemaDoc(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.addAndRespond(w, r, doc, "")
}

// AddSchemaByName handles POST /names/<name>/versions (and its
// /subjects alias): the body's own name must match the URL segment.
func (h *Handler) AddSchemaByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doc, err := readSchemaDoc(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.addAndRespond(w, r, doc, name)
}

func (h *Handler) addAndRespond(w http.ResponseWriter, r *http.Request, doc []byte, wantName string) {
	if err := validateDocumentShape(doc); err != nil {
		writeError(w, err)
		return
	}
	sch, err := schema.Parse(doc)
	if err != nil {
		writeError(w, wrapErr(registry.ErrBadSchema, err))
		return
	}
	if wantName != "" && sch.Name != wantName {
		writeError(w, wrapErr(registry.ErrNameMismatch,
			errors.New(sch.Name+" does not match the name in the URL ("+wantName+")")))
		return
	}
	id, err := h.store.Add(r.Context(), sch)
	if h.metrics != nil {
		h.metrics.RecordSchemaRegistration(err == nil)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, map[string]string{"id": id})
}

// GetSchema handles GET /schemas/ids/<id>.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sch, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := sch.AsJSON()
	if err != nil {
		writeError(w, wrapErr(registry.ErrBadSchema, err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// DeleteSchema handles DELETE /schemas/ids/<id>, returning ["<id>"].
func (h *Handler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, []string{id})
}

// ListNames handles GET /names (alias /subjects).
func (h *Handler) ListNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListNames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, nonNil(names))
}

// DeleteByName handles DELETE /names/<name>: deletes every id
// registered under name, returning the deleted ids.
func (h *Handler) DeleteByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ids, err := h.store.ListVersionsByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteByName(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, nonNil(ids))
}

// ListVersionsByName handles GET /names/<name>/versions (alias
// /subjects/<name>/versions).
func (h *Handler) ListVersionsByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ids, err := h.store.ListVersionsByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, nonNil(ids))
}

// ListDigests handles GET /digests.
func (h *Handler) ListDigests(w http.ResponseWriter, r *http.Request) {
	digests, err := h.store.ListDigests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, nonNil(digests))
}

// ListVersionsByDigest handles GET /digests/<hex>/versions. Hex
// comparison is lowercase (spec §4.4).
func (h *Handler) ListVersionsByDigest(w http.ResponseWriter, r *http.Request) {
	digest := strings.ToLower(chi.URLParam(r, "digest"))
	if _, err := hex.DecodeString(digest); err != nil {
		writeError(w, wrapErr(errInvalidArgument, err))
		return
	}
	ids, err := h.store.ListVersionsByDigest(r.Context(), digest)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = writeJSONBody(w, nonNil(ids))
}

// readSchemaDoc reads the request body and unwraps a {"schema": {...}}
// envelope if present, per spec §4.1's "either shaped {"schema": {...}}
// or {...} directly".
func readSchemaDoc(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, wrapErr(errInvalidArgument, err)
	}
	if len(body) == 0 {
		return nil, wrapErr(errInvalidArgument, errors.New("missing input JSON object"))
	}
	var envelope struct {
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Schema) > 0 {
		return envelope.Schema, nil
	}
	return body, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSONBody(w http.ResponseWriter, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

func wrapErr(sentinel, cause error) error {
	return &wrappedError{sentinel: sentinel, cause: cause}
}

// wrappedError pairs a sentinel (for errors.Is/statusFor) with the
// original cause (for its message), avoiding an fmt.Errorf %w+%v
// format string rebuilt at every call site.
type wrappedError struct {
	sentinel error
	cause    error
}

func (e *wrappedError) Error() string { return e.cause.Error() }
func (e *wrappedError) Unwrap() error { return e.sentinel }
