package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

// JWTProvider verifies bearer tokens against a single statically
// configured public key (PublicKeyFile), trimmed from the teacher's
// JWTProvider which additionally supports remote JWKS rotation — this
// registry's control plane is not expected to rotate signing keys
// often enough to justify that complexity (DESIGN.md).
type JWTProvider struct {
	cfg       config.JWTConfig
	publicKey any
}

// NewJWTProvider loads cfg.PublicKeyFile and returns a provider.
func NewJWTProvider(cfg config.JWTConfig) (*JWTProvider, error) {
	p := &JWTProvider{cfg: cfg}
	if cfg.PublicKeyFile == "" {
		return nil, fmt.Errorf("jwt: public_key_file is required")
	}
	if err := p.loadPublicKey(cfg.PublicKeyFile, cfg.Algorithm); err != nil {
		return nil, fmt.Errorf("jwt: load public key: %w", err)
	}
	return p, nil
}

func (p *JWTProvider) loadPublicKey(path, algorithm string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return errors.New("failed to decode PEM block")
	}

	switch {
	case strings.HasPrefix(algorithm, "RS"):
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			pub, err = x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return fmt.Errorf("parse RSA public key: %w", err)
			}
		}
		rsaKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			return errors.New("key is not an RSA public key")
		}
		p.publicKey = rsaKey
	case strings.HasPrefix(algorithm, "ES"):
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse ECDSA public key: %w", err)
		}
		if _, ok := pub.(*ecdsa.PublicKey); !ok {
			return errors.New("key is not an ECDSA public key")
		}
		p.publicKey = pub
	case strings.HasPrefix(algorithm, "HS"):
		p.publicKey = data
	default:
		return fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
	return nil
}

// VerifyToken validates rawToken's signature, issuer and audience.
func (p *JWTProvider) VerifyToken(_ context.Context, rawToken string) (*User, bool) {
	keyFunc := func(token *jwt.Token) (any, error) {
		alg := p.cfg.Algorithm
		switch {
		case strings.HasPrefix(alg, "RS"):
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
		case strings.HasPrefix(alg, "ES"):
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
		case strings.HasPrefix(alg, "HS"):
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
		}
		return p.publicKey, nil
	}

	var parseOpts []jwt.ParserOption
	if p.cfg.Algorithm != "" {
		parseOpts = append(parseOpts, jwt.WithValidMethods([]string{p.cfg.Algorithm}))
	}

	token, err := jwt.Parse(rawToken, keyFunc, parseOpts...)
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	if p.cfg.Issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != p.cfg.Issuer {
			return nil, false
		}
	}
	if p.cfg.Audience != "" {
		aud, _ := claims.GetAudience()
		found := false
		for _, a := range aud {
			if a == p.cfg.Audience {
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, false
	}
	return &User{Username: sub, Method: "jwt"}, true
}
