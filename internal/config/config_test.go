package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "0.0.0.0:8080", cfg.SchemaRegistry.Listen)
	require.Equal(t, "memory", cfg.SchemaRegistry.Members[0].Type)
	require.Equal(t, "none", cfg.SchemaRegistry.Auth.Scheme)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingListen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SchemaRegistry.Listen = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownAuthScheme(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SchemaRegistry.Auth.Scheme = "kerberos"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyMembers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SchemaRegistry.Members = nil
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownMemberType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SchemaRegistry.Members = []MemberConfig{{Type: "oracle"}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsLopsidedTLSFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SchemaRegistry.KeyFile = "/tmp/key.pem"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownAuditSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.Sink = "kafka"
	require.Error(t, cfg.Validate())
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	yamlDoc := `
schema_registry:
  etcd_prefix: /ldms/test
  listen: 127.0.0.1:9999
  auth:
    scheme: simple
    users:
      admin: "$2a$bcrypt-hash"
  members:
    - type: etcd
      endpoints:
        - http://localhost:2379
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.SchemaRegistry.Listen)
	require.Equal(t, "/ldms/test", cfg.SchemaRegistry.EtcdPrefix)
	require.Equal(t, "simple", cfg.SchemaRegistry.Auth.Scheme)
	require.Equal(t, "etcd", cfg.SchemaRegistry.Members[0].Type)
	require.Equal(t, []string{"http://localhost:2379"}, cfg.SchemaRegistry.Members[0].Endpoints)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("LDMS_REGISTRY_LISTEN", "0.0.0.0:7777")
	t.Setenv("LDMS_REGISTRY_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7777", cfg.SchemaRegistry.Listen)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestMemberConfigToKVConfig(t *testing.T) {
	m := MemberConfig{Type: "postgres", DSN: "postgres://localhost/registry"}
	kvCfg := m.ToKVConfig()
	require.Equal(t, "postgres://localhost/registry", kvCfg["dsn"])
}

func TestTLSEnabled(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.TLSEnabled())
	cfg.SchemaRegistry.KeyFile = "/tmp/key.pem"
	cfg.SchemaRegistry.CertFile = "/tmp/cert.pem"
	require.True(t, cfg.TLSEnabled())
}
