package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

func basicAuthHeader(username, password string) string {
	req := &http.Request{Header: http.Header{}}
	req.SetBasicAuth(username, password)
	return req.Header.Get("Authorization")
}

func TestMiddlewareSchemeNoneBypassesAuth(t *testing.T) {
	a := New(config.AuthConfig{Scheme: "none"}, nil, nil, nil)
	called := false
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareSimpleRejectsMissingCredentials(t *testing.T) {
	a := New(config.AuthConfig{Scheme: "simple"}, nil, nil, nil)
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestMiddlewareSimpleAcceptsValidCredentials(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	a := New(config.AuthConfig{Scheme: "simple", Users: map[string]string{"alice": hash}}, nil, nil, nil)
	var gotUser *User
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "s3cret"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotUser)
	require.Equal(t, "alice", gotUser.Username)
	require.Equal(t, "simple", gotUser.Method)
}

func TestMiddlewareSimpleRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	a := New(config.AuthConfig{Scheme: "simple", Users: map[string]string{"alice": hash}}, nil, nil, nil)
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", basicAuthHeader("alice", "wrong"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeBearerVerifier struct {
	user *User
	ok   bool
}

func (f *fakeBearerVerifier) VerifyToken(ctx context.Context, rawToken string) (*User, bool) {
	if rawToken != "valid-token" {
		return nil, false
	}
	return f.user, f.ok
}

func TestMiddlewareBearerScheme(t *testing.T) {
	verifier := &fakeBearerVerifier{user: &User{Username: "bob"}, ok: true}
	a := New(config.AuthConfig{Scheme: "oidc"}, nil, verifier, nil)
	var gotUser *User
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "bob", gotUser.Username)
	require.Equal(t, "oidc", gotUser.Method)
}

func TestMiddlewareBearerRejectsMissingHeader(t *testing.T) {
	verifier := &fakeBearerVerifier{ok: true}
	a := New(config.AuthConfig{Scheme: "jwt"}, nil, nil, verifier)
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestGetUserAbsent(t *testing.T) {
	require.Nil(t, GetUser(context.Background()))
}

func TestHashPasswordDoesNotReturnPlaintext(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)
}

func TestConstantTimeCompare(t *testing.T) {
	require.True(t, ConstantTimeCompare("abc", "abc"))
	require.False(t, ConstantTimeCompare("abc", "abd"))
}
