// Package registryclient is an HTTP client for spec §4.4's schema
// registry surface, grounded on
// original_source/src/maestro/client.py's SchemaRegistryClient: a list
// of server URLs, failing over to the next one on a transport error
// and advancing the "current" index on success so the next call
// starts there.
package registryclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ovis-hpc/ldms-registry/internal/schema"
)

// Client talks to one or more schema registry servers, failing over
// across the configured url list the way SchemaRegistryClient._req
// advances through self._urls on a connection failure.
type Client struct {
	mu       sync.Mutex
	urls     []string
	idx      int
	http     *retryablehttp.Client
	username string
	password string
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets HTTP Basic credentials sent with every request,
// matching the teacher's requests.auth.HTTPBasicAuth usage.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithCACertFile trusts the PEM certificate at path in addition to the
// system roots, for servers using a self-signed certificate (mirrors
// the teacher's ca_cert parameter).
func WithCACertFile(path string) Option {
	return func(c *Client) {
		pem, err := os.ReadFile(path)
		if err != nil {
			return
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pool.AppendCertsFromPEM(pem)
		transport := c.http.HTTPClient.Transport
		httpTransport, ok := transport.(*http.Transport)
		if !ok || httpTransport == nil {
			httpTransport = &http.Transport{}
		}
		httpTransport.TLSClientConfig = &tls.Config{RootCAs: pool}
		c.http.HTTPClient.Transport = httpTransport
	}
}

// New builds a Client over urls, tried starting from urls[0].
func New(urls []string, opts ...Option) *Client {
	// RetryMax is 0: retryablehttp's own backoff-retry loop is
	// redundant with do()'s url-list failover below, which already
	// advances to the next endpoint on any transport error.
	hc := retryablehttp.NewClient()
	hc.Logger = nil
	hc.RetryMax = 0

	c := &Client{urls: urls, http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one request, failing over across c.urls on a transport
// error and stopping (without failover) on a non-2xx response, which
// is a business-logic answer from a reachable server, not a transport
// failure (matching _req's not resp.ok branch).
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	c.mu.Lock()
	start := c.idx
	n := len(c.urls)
	c.mu.Unlock()

	var lastErr error
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		url := c.urls[idx] + path

		var reader io.ReadSeeker
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("registryclient: build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		c.mu.Lock()
		c.idx = idx
		c.mu.Unlock()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("registryclient: %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
		}
		if readErr != nil {
			return nil, fmt.Errorf("registryclient: read response: %w", readErr)
		}
		return data, nil
	}
	return nil, fmt.Errorf("registryclient: all %d endpoints unreachable: %w", n, lastErr)
}

// AddSchema registers s, returning its id.
func (c *Client) AddSchema(ctx context.Context, s *schema.Schema) (string, error) {
	doc, err := s.AsJSON()
	if err != nil {
		return "", fmt.Errorf("registryclient: encode schema: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/", doc)
	if err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("registryclient: decode add response: %w", err)
	}
	return resp.ID, nil
}

// GetSchema fetches the schema stored under id.
func (c *Client) GetSchema(ctx context.Context, id string) (*schema.Schema, error) {
	data, err := c.do(ctx, http.MethodGet, "/schemas/ids/"+id, nil)
	if err != nil {
		return nil, err
	}
	return schema.Parse(data)
}

// DeleteSchema deletes the schema stored under id.
func (c *Client) DeleteSchema(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/schemas/ids/"+id, nil)
	return err
}

// ListNames returns every distinct schema name.
func (c *Client) ListNames(ctx context.Context) ([]string, error) {
	return c.listStrings(ctx, "/names")
}

// ListVersionsByName returns every id registered under name.
func (c *Client) ListVersionsByName(ctx context.Context, name string) ([]string, error) {
	return c.listStrings(ctx, "/names/"+name+"/versions")
}

// ListDigests returns every distinct hex digest.
func (c *Client) ListDigests(ctx context.Context) ([]string, error) {
	return c.listStrings(ctx, "/digests")
}

// ListVersionsByDigest returns every id sharing hexDigest.
func (c *Client) ListVersionsByDigest(ctx context.Context, hexDigest string) ([]string, error) {
	return c.listStrings(ctx, "/digests/"+hexDigest+"/versions")
}

func (c *Client) listStrings(ctx context.Context, path string) ([]string, error) {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("registryclient: decode %s response: %w", path, err)
	}
	return out, nil
}
