package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

func TestNewLDAPProviderRequiresURL(t *testing.T) {
	_, err := NewLDAPProvider(config.LDAPConfig{BindDN: "cn=admin"})
	require.Error(t, err)
}

func TestNewLDAPProviderRequiresBindDN(t *testing.T) {
	_, err := NewLDAPProvider(config.LDAPConfig{URL: "ldap://localhost:389"})
	require.Error(t, err)
}

func TestNewLDAPProviderAppliesDefaults(t *testing.T) {
	p, err := NewLDAPProvider(config.LDAPConfig{URL: "ldap://localhost:389", BindDN: "cn=admin"})
	require.NoError(t, err)
	require.Equal(t, "(uid=%s)", p.cfg.UserSearchFilter)
	require.Equal(t, "uid", p.cfg.UsernameAttribute)
	require.NotZero(t, p.cfg.ConnectTimeout)
}

func TestLDAPAuthenticateRejectsEmptyCredentials(t *testing.T) {
	p, err := NewLDAPProvider(config.LDAPConfig{URL: "ldap://localhost:389", BindDN: "cn=admin"})
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), "", "")
	require.Error(t, err)
}
