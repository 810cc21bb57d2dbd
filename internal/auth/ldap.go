package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

// LDAPProvider authenticates a username/password pair against a
// directory: bind as the service account, search for the user, then
// re-bind as that user to verify the password. No role/group mapping
// — spec §4.4 has one permission, not a role hierarchy.
type LDAPProvider struct {
	cfg config.LDAPConfig
}

// NewLDAPProvider validates cfg and returns a provider.
func NewLDAPProvider(cfg config.LDAPConfig) (*LDAPProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ldap: url is required")
	}
	if cfg.BindDN == "" {
		return nil, fmt.Errorf("ldap: bind_dn is required")
	}
	if cfg.UserSearchFilter == "" {
		cfg.UserSearchFilter = "(uid=%s)"
	}
	if cfg.UsernameAttribute == "" {
		cfg.UsernameAttribute = "uid"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &LDAPProvider{cfg: cfg}, nil
}

// Authenticate binds as username/password after resolving the user's
// DN via a service-account search.
func (p *LDAPProvider) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("ldap: username and password are required")
	}

	conn, err := p.connect()
	if err != nil {
		return nil, fmt.Errorf("ldap: connect: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(p.cfg.BindDN, p.cfg.BindPassword); err != nil {
		return nil, fmt.Errorf("ldap: service bind failed: %w", err)
	}

	entry, err := p.searchUser(conn, username)
	if err != nil {
		return nil, fmt.Errorf("ldap: user search failed: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("ldap: user not found")
	}

	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("ldap: invalid credentials")
	}

	actual := entry.GetAttributeValue(p.cfg.UsernameAttribute)
	if actual == "" {
		actual = username
	}
	return &User{Username: actual, Method: "ldap"}, nil
}

func (p *LDAPProvider) connect() (*ldap.Conn, error) {
	var conn *ldap.Conn
	var err error

	if strings.HasPrefix(p.cfg.URL, "ldaps://") {
		tlsConfig, tlsErr := p.tlsConfig()
		if tlsErr != nil {
			return nil, tlsErr
		}
		conn, err = ldap.DialURL(p.cfg.URL, ldap.DialWithTLSConfig(tlsConfig))
	} else {
		conn, err = ldap.DialURL(p.cfg.URL)
	}
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(p.cfg.ConnectTimeout)

	if p.cfg.StartTLS && !strings.HasPrefix(p.cfg.URL, "ldaps://") {
		tlsConfig, tlsErr := p.tlsConfig()
		if tlsErr != nil {
			conn.Close()
			return nil, tlsErr
		}
		if err := conn.StartTLS(tlsConfig); err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}
	return conn, nil
}

func (p *LDAPProvider) tlsConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: p.cfg.InsecureSkipVerify, // #nosec G402 -- operator opt-in via config
		MinVersion:         tls.VersionTLS12,
	}
	if p.cfg.CACertFile != "" {
		caCert, err := os.ReadFile(p.cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse ca cert")
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}

func (p *LDAPProvider) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	filter := strings.ReplaceAll(p.cfg.UserSearchFilter, "%s", ldap.EscapeFilter(username))
	req := ldap.NewSearchRequest(
		p.cfg.UserSearchBase,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		filter,
		[]string{"dn", p.cfg.UsernameAttribute},
		nil,
	)
	result, err := conn.Search(req)
	if err != nil {
		return nil, err
	}
	if len(result.Entries) == 0 {
		return nil, nil
	}
	return result.Entries[0], nil
}
