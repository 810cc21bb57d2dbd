package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

func TestNewOIDCProviderRequiresIssuerURL(t *testing.T) {
	_, err := NewOIDCProvider(context.Background(), config.OIDCConfig{ClientID: "registry"})
	require.Error(t, err)
}

func TestNewOIDCProviderRequiresClientID(t *testing.T) {
	_, err := NewOIDCProvider(context.Background(), config.OIDCConfig{IssuerURL: "https://issuer.example.com"})
	require.Error(t, err)
}

func TestNewOIDCProviderFailsOnUnreachableIssuer(t *testing.T) {
	_, err := NewOIDCProvider(context.Background(), config.OIDCConfig{
		IssuerURL: "https://issuer.invalid.example",
		ClientID:  "registry",
	})
	require.Error(t, err)
}

func TestVerifyTokenRejectsEmptyToken(t *testing.T) {
	p := &OIDCProvider{cfg: config.OIDCConfig{ClientID: "registry"}}
	_, ok := p.VerifyToken(context.Background(), "")
	require.False(t, ok)
}
