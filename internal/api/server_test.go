package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/config"
	"github.com/ovis-hpc/ldms-registry/internal/kv/memory"
	"github.com/ovis-hpc/ldms-registry/internal/registry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := registry.New(memory.New(), nil)
	cfg := config.DefaultConfig()
	return NewServer(cfg, store, nil)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

const meminfoDoc = `{"name":"meminfo","fields":[{"name":"MemTotal","type":"u64"}]}`

func TestAddSchemaReturnsID(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/", meminfoDoc)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp["id"], "meminfo-")
}

func TestAddSchemaAcceptsWrappedEnvelope(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/", `{"schema":`+meminfoDoc+`}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAddSchemaIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	w1 := doRequest(s, http.MethodPost, "/", meminfoDoc)
	w2 := doRequest(s, http.MethodPost, "/", meminfoDoc)

	var r1, r2 map[string]string
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &r1))
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &r2))
	require.Equal(t, r1["id"], r2["id"])

	w3 := doRequest(s, http.MethodGet, "/names/meminfo/versions", "")
	var ids []string
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &ids))
	require.Len(t, ids, 1)
}

func TestGetAndDeleteSchemaByID(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/", meminfoDoc)
	var added map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	id := added["id"]

	get := doRequest(s, http.MethodGet, "/schemas/ids/"+id, "")
	require.Equal(t, http.StatusOK, get.Code)

	del := doRequest(s, http.MethodDelete, "/schemas/ids/"+id, "")
	require.Equal(t, http.StatusOK, del.Code)
	var deleted []string
	require.NoError(t, json.Unmarshal(del.Body.Bytes(), &deleted))
	require.Equal(t, []string{id}, deleted)

	missing := doRequest(s, http.MethodGet, "/schemas/ids/"+id, "")
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestListNamesAndSubjectsAlias(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/", meminfoDoc)

	for _, path := range []string{"/names", "/subjects"} {
		w := doRequest(s, http.MethodGet, path, "")
		var names []string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
		require.Contains(t, names, "meminfo")
	}
}

func TestDeleteByNameRemovesAllVersions(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/", meminfoDoc)

	del := doRequest(s, http.MethodDelete, "/names/meminfo", "")
	require.Equal(t, http.StatusOK, del.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(del.Body.Bytes(), &ids))
	require.Len(t, ids, 1)

	names := doRequest(s, http.MethodGet, "/names", "")
	var list []string
	require.NoError(t, json.Unmarshal(names.Body.Bytes(), &list))
	require.NotContains(t, list, "meminfo")
}

func TestAddSchemaByNameRejectsMismatch(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/names/other/versions", meminfoDoc)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAddSchemaByNameAcceptsMatchAndSubjectsAlias(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/subjects/meminfo/versions", meminfoDoc)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListDigestsAndVersionsByDigestLowercasesHex(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/", meminfoDoc)
	var added map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	id := added["id"]
	hexDigest := strings.TrimPrefix(id, "meminfo-")

	digests := doRequest(s, http.MethodGet, "/digests", "")
	var list []string
	require.NoError(t, json.Unmarshal(digests.Body.Bytes(), &list))
	require.Contains(t, list, hexDigest)

	versions := doRequest(s, http.MethodGet, "/digests/"+strings.ToUpper(hexDigest)+"/versions", "")
	require.Equal(t, http.StatusOK, versions.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(versions.Body.Bytes(), &ids))
	require.Equal(t, []string{id}, ids)
}

func TestAddSchemaRejectsMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/", `{not json`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAddSchemaRejectsMissingBody(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTrailingSlashIgnored(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/names/", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
}
