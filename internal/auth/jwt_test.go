package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

func writeRSAPublicKeyPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}

	path := filepath.Join(t.TempDir(), "pub.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestNewJWTProviderRequiresPublicKeyFile(t *testing.T) {
	_, err := NewJWTProvider(config.JWTConfig{Algorithm: "RS256"})
	require.Error(t, err)
}

func TestVerifyTokenAcceptsValidToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPath := writeRSAPublicKeyPEM(t, key)

	p, err := NewJWTProvider(config.JWTConfig{
		PublicKeyFile: keyPath,
		Algorithm:     "RS256",
		Issuer:        "ldms-registry",
		Audience:      "schema-registry",
	})
	require.NoError(t, err)

	token := signRS256(t, key, jwt.MapClaims{
		"iss": "ldms-registry",
		"aud": "schema-registry",
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	user, ok := p.VerifyToken(context.Background(), token)
	require.True(t, ok)
	require.Equal(t, "alice", user.Username)
}

func TestVerifyTokenRejectsWrongIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPath := writeRSAPublicKeyPEM(t, key)

	p, err := NewJWTProvider(config.JWTConfig{
		PublicKeyFile: keyPath,
		Algorithm:     "RS256",
		Issuer:        "ldms-registry",
	})
	require.NoError(t, err)

	token := signRS256(t, key, jwt.MapClaims{
		"iss": "someone-else",
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, ok := p.VerifyToken(context.Background(), token)
	require.False(t, ok)
}

func TestVerifyTokenRejectsMissingSubject(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPath := writeRSAPublicKeyPEM(t, key)

	p, err := NewJWTProvider(config.JWTConfig{PublicKeyFile: keyPath, Algorithm: "RS256"})
	require.NoError(t, err)

	token := signRS256(t, key, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	_, ok := p.VerifyToken(context.Background(), token)
	require.False(t, ok)
}

func TestVerifyTokenRejectsMalformedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPath := writeRSAPublicKeyPEM(t, key)

	p, err := NewJWTProvider(config.JWTConfig{PublicKeyFile: keyPath, Algorithm: "RS256"})
	require.NoError(t, err)

	_, ok := p.VerifyToken(context.Background(), "not-a-jwt")
	require.False(t, ok)
}
