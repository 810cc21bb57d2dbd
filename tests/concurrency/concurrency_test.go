//go:build concurrency

// Package concurrency exercises the registry's concurrency guarantees
// (spec §5, §8) against several api.Server instances sharing one KV
// backend, the way the teacher's tests/concurrency package drives
// several server instances against one shared database.
package concurrency

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ovis-hpc/ldms-registry/internal/api"
	"github.com/ovis-hpc/ldms-registry/internal/config"
	"github.com/ovis-hpc/ldms-registry/internal/kv/memory"
	"github.com/ovis-hpc/ldms-registry/internal/registry"
)

const (
	numInstances  = 3
	numConcurrent = 10
	numOperations = 50
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// newCluster builds numInstances api.Server instances fronting the
// same kv.KV backend, returning each instance's base URL.
func newCluster(t *testing.T) []string {
	t.Helper()
	backend := memory.New()
	store := registry.New(backend, nil)

	urls := make([]string, 0, numInstances)
	for i := 0; i < numInstances; i++ {
		srv := api.NewServer(config.DefaultConfig(), store, nil)
		ts := httptest.NewServer(srv.Router())
		t.Cleanup(ts.Close)
		urls = append(urls, ts.URL)
	}
	return urls
}

var instanceCounter atomic.Uint64

func pick(urls []string) string {
	idx := instanceCounter.Add(1) % uint64(len(urls))
	return urls[idx]
}

func doRequest(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if raw, ok := body.([]byte); ok {
		reader = bytes.NewReader(raw)
	} else if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestConcurrentSchemaRegistrationAllSucceed(t *testing.T) {
	urls := newCluster(t)

	var wg sync.WaitGroup
	var successes, failures int64
	for w := 0; w < numConcurrent; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				doc := fmt.Sprintf(`{"name":"concurrent_%d_%d","fields":[{"name":"v","type":"u32"}]}`, worker, j)
				resp := doRequest(t, http.MethodPost, pick(urls)+"/", []byte(doc))
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					atomic.AddInt64(&successes, 1)
				} else {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()

	t.Logf("successes=%d failures=%d", successes, failures)
	if failures > 0 {
		t.Errorf("expected every distinct schema registration to succeed, got %d failures", failures)
	}
}

// TestSchemaIdempotency verifies that registering the exact same
// document concurrently from every instance always resolves to the
// same content-addressed id — the registry has no version counter to
// race on, only a PutIfAbsent keyed by digest.
func TestSchemaIdempotency(t *testing.T) {
	urls := newCluster(t)
	doc := []byte(`{"name":"idempotent_meminfo","fields":[{"name":"MemTotal","type":"u64"}]}`)

	ids := make(chan string, numConcurrent)
	var wg sync.WaitGroup
	for w := 0; w < numConcurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := doRequest(t, http.MethodPost, pick(urls)+"/", doc)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("add failed with status %d", resp.StatusCode)
				return
			}
			var out struct {
				ID string `json:"id"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Errorf("decode response: %v", err)
				return
			}
			ids <- out.ID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
			continue
		}
		if id != first {
			t.Fatalf("expected every registration to resolve to the same id, got %q and %q", first, id)
		}
	}

	resp := doRequest(t, http.MethodGet, pick(urls)+"/names/idempotent_meminfo/versions", nil)
	defer resp.Body.Close()
	var versions []string
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		t.Fatalf("decode versions: %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("expected exactly one id under the name despite %d concurrent registrations, got %d", numConcurrent, len(versions))
	}
}

// TestConcurrentAddThenDelete registers distinct schemas concurrently
// across every instance, then deletes every returned id concurrently,
// verifying the store never panics or deadlocks and that /names is
// empty once every id has been deleted.
func TestConcurrentAddThenDelete(t *testing.T) {
	urls := newCluster(t)

	var wg sync.WaitGroup
	ids := make(chan string, numConcurrent*numOperations)
	for w := 0; w < numConcurrent; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				doc := fmt.Sprintf(`{"name":"race_%d_%d","fields":[{"name":"v","type":"u32"}]}`, worker, j)
				resp := doRequest(t, http.MethodPost, pick(urls)+"/", []byte(doc))
				var out struct {
					ID string `json:"id"`
				}
				_ = json.NewDecoder(resp.Body).Decode(&out)
				resp.Body.Close()
				if out.ID != "" {
					ids <- out.ID
				}
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	var deleteWG sync.WaitGroup
	for id := range ids {
		deleteWG.Add(1)
		go func(id string) {
			defer deleteWG.Done()
			resp := doRequest(t, http.MethodDelete, pick(urls)+"/schemas/ids/"+id, nil)
			resp.Body.Close()
		}(id)
	}
	deleteWG.Wait()

	resp := doRequest(t, http.MethodGet, pick(urls)+"/names", nil)
	defer resp.Body.Close()
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatalf("decode names: %v", err)
	}
	for _, name := range names {
		t.Errorf("expected every deleted schema name to be gone, found %q", name)
	}
}
