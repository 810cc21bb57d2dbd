// Package auth implements the registry's pluggable authentication
// predicate (spec §4.4): a single active scheme (none, simple basic
// auth, ldap, oidc, or jwt) decides whether a request is authorized.
// Generalized from the teacher's internal/auth, which chains several
// simultaneous methods and a role/RBAC layer this registry has no use
// for (there is one resource — the schema store — and one permission:
// authenticated or not).
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// User identifies the authenticated caller.
type User struct {
	Username string
	Method   string // simple, ldap, oidc, jwt
}

// ldapAuthenticator validates a username/password pair against a
// directory. Implemented by *LDAPProvider in this package's ldap.go.
type ldapAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
}

// bearerVerifier validates a bearer token. Implemented by
// *OIDCProvider and *JWTProvider.
type bearerVerifier interface {
	VerifyToken(ctx context.Context, rawToken string) (*User, bool)
}

// Authenticator enforces the configured scheme for incoming requests.
type Authenticator struct {
	cfg  config.AuthConfig
	ldap ldapAuthenticator
	oidc bearerVerifier
	jwt  bearerVerifier
}

// New builds an Authenticator for the configured scheme. ldapP, oidcP,
// jwtP may be nil when the corresponding scheme is not in use.
func New(cfg config.AuthConfig, ldapP ldapAuthenticator, oidcP, jwtP bearerVerifier) *Authenticator {
	return &Authenticator{cfg: cfg, ldap: ldapP, oidc: oidcP, jwt: jwtP}
}

// Middleware enforces the configured scheme, rejecting the request
// with 401 if authentication fails. Scheme "none" is a no-op.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Scheme == "" || a.cfg.Scheme == "none" {
			next.ServeHTTP(w, r)
			return
		}

		user, ok := a.authenticate(r)
		if !ok {
			a.unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (*User, bool) {
	switch a.cfg.Scheme {
	case "simple":
		return a.authenticateBasic(r)
	case "ldap":
		return a.authenticateLDAP(r)
	case "oidc":
		return a.authenticateBearer(r, a.oidc, "oidc")
	case "jwt":
		return a.authenticateBearer(r, a.jwt, "jwt")
	default:
		return nil, false
	}
}

func (a *Authenticator) authenticateBasic(r *http.Request) (*User, bool) {
	username, password, ok := basicCredentials(r)
	if !ok || password == "" {
		return nil, false
	}
	storedHash, ok := a.cfg.Users[username]
	if !ok {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)); err != nil {
		return nil, false
	}
	return &User{Username: username, Method: "simple"}, true
}

func (a *Authenticator) authenticateLDAP(r *http.Request) (*User, bool) {
	if a.ldap == nil {
		return nil, false
	}
	username, password, ok := basicCredentials(r)
	if !ok || password == "" {
		return nil, false
	}
	user, err := a.ldap.Authenticate(r.Context(), username, password)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (a *Authenticator) authenticateBearer(r *http.Request, verifier bearerVerifier, method string) (*User, bool) {
	if verifier == nil {
		return nil, false
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" {
		return nil, false
	}
	user, ok := verifier.VerifyToken(r.Context(), token)
	if ok && user != nil {
		user.Method = method
	}
	return user, ok
}

func basicCredentials(r *http.Request) (username, password string, ok bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (a *Authenticator) unauthorized(w http.ResponseWriter) {
	switch a.cfg.Scheme {
	case "simple", "ldap":
		realm := a.cfg.Realm
		if realm == "" {
			realm = "ldms-registry"
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	case "oidc", "jwt":
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// GetUser retrieves the authenticated user from context, or nil for
// unauthenticated requests (scheme "none").
func GetUser(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// Username extracts the authenticated username, or "" if absent;
// convenience for internal/audit's contextUser hook.
func Username(r *http.Request) string {
	if u := GetUser(r.Context()); u != nil {
		return u.Username
	}
	return ""
}

// HashPassword bcrypt-hashes a password for AuthConfig.Users entries.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ConstantTimeCompare performs a constant-time string comparison,
// used where a caller needs plain equality instead of bcrypt (e.g.
// comparing a bearer token to a configured static value).
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
