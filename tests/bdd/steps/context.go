//go:build bdd

// Package steps provides godog step definitions for the registry's
// BDD suite, adapted from the teacher's tests/bdd/steps package down
// to this registry's actual HTTP surface (spec §4.4).
package steps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds state shared across steps within a single scenario.
type TestContext struct {
	BaseURL        string
	LastStatusCode int
	LastBody       []byte
	LastJSON       map[string]interface{}
	LastJSONArray  []interface{}
	StoredValues   map[string]interface{}
	AuthHeader     string
	client         *http.Client
}

// NewTestContext creates a fresh test context pointed at baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL:      baseURL,
		StoredValues: make(map[string]interface{}),
		client:       &http.Client{Timeout: 5 * time.Second},
	}
}

func (tc *TestContext) resolveVars(s string) string {
	for key, val := range tc.StoredValues {
		s = strings.ReplaceAll(s, "{{"+key+"}}", fmt.Sprintf("%v", val))
	}
	return s
}

// DoRequest sends an HTTP request with a JSON-marshaled body (nil for none).
func (tc *TestContext) DoRequest(method, path string, body interface{}) error {
	path = tc.resolveVars(path)
	url := tc.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.AuthHeader != "" {
		req.Header.Set("Authorization", tc.AuthHeader)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastStatusCode = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	tc.LastJSON = nil
	tc.LastJSONArray = nil
	if len(tc.LastBody) > 0 {
		switch tc.LastBody[0] {
		case '{':
			var obj map[string]interface{}
			if json.Unmarshal(tc.LastBody, &obj) == nil {
				tc.LastJSON = obj
			}
		case '[':
			var arr []interface{}
			if json.Unmarshal(tc.LastBody, &arr) == nil {
				tc.LastJSONArray = arr
			}
		}
	}
	return nil
}

// GET sends a GET request.
func (tc *TestContext) GET(path string) error { return tc.DoRequest(http.MethodGet, path, nil) }

// POST sends a POST request; body is JSON-marshaled as in DoRequest,
// so a json.RawMessage is sent unchanged.
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.DoRequest(http.MethodPost, path, body)
}

// DELETE sends a DELETE request.
func (tc *TestContext) DELETE(path string) error { return tc.DoRequest(http.MethodDelete, path, nil) }

// JSONField extracts a field from the last JSON object response.
func (tc *TestContext) JSONField(key string) (interface{}, error) {
	if tc.LastJSON == nil {
		return nil, fmt.Errorf("no JSON object in last response: %s", string(tc.LastBody))
	}
	val, ok := tc.LastJSON[key]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", key, string(tc.LastBody))
	}
	return val, nil
}

// JSONFieldString extracts a string field from the last JSON response.
func (tc *TestContext) JSONFieldString(key string) (string, error) {
	val, err := tc.JSONField(key)
	if err != nil {
		return "", err
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string: %T", key, val)
	}
	return s, nil
}
