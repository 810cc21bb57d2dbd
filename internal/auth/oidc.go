package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

// OIDCProvider verifies bearer tokens against an OIDC issuer's
// discovery document. No role/group mapping, matching this package's
// single authenticated/unauthenticated predicate.
type OIDCProvider struct {
	cfg      config.OIDCConfig
	verifier *oidc.IDTokenVerifier
}

// NewOIDCProvider fetches the issuer's discovery document and builds
// a verifier scoped to cfg.ClientID.
func NewOIDCProvider(ctx context.Context, cfg config.OIDCConfig) (*OIDCProvider, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("oidc: issuer_url is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oidc: client_id is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc: discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &OIDCProvider{cfg: cfg, verifier: verifier}, nil
}

// VerifyToken validates rawToken and returns the subject as User.
func (p *OIDCProvider) VerifyToken(ctx context.Context, rawToken string) (*User, bool) {
	if rawToken == "" {
		return nil, false
	}
	idToken, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, false
	}
	return &User{Username: idToken.Subject, Method: "oidc"}, true
}
