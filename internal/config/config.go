// Package config provides configuration management for the schema
// registry and daemon control services (spec §6.6).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	SchemaRegistry SchemaRegistryConfig `yaml:"schema_registry"`
	Logging        LoggingConfig        `yaml:"logging"`
	Audit          AuditConfig          `yaml:"audit"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

// SchemaRegistryConfig is the "schema_registry" section, matching
// spec §6.6 field-for-field.
type SchemaRegistryConfig struct {
	EtcdPrefix string          `yaml:"etcd_prefix"`
	Listen     string          `yaml:"listen"`
	KeyFile    string          `yaml:"keyfile"`
	CertFile   string          `yaml:"certfile"`
	Auth       AuthConfig      `yaml:"auth"`
	Members    []MemberConfig  `yaml:"members"`
}

// MemberConfig describes one pluggable KV backend endpoint (spec
// §4.3); Type must match a registered internal/kv.BackendType.
type MemberConfig struct {
	Type      string   `yaml:"type"` // memory, etcd, vault, postgres, mysql
	Endpoints []string `yaml:"endpoints,omitempty"`
	Address   string   `yaml:"address,omitempty"`
	Token     string   `yaml:"token,omitempty"`
	Mount     string   `yaml:"mount,omitempty"`
	DSN       string   `yaml:"dsn,omitempty"`
}

// ToKVConfig renders a MemberConfig as the map[string]interface{}
// shape internal/kv.Factory expects.
func (m MemberConfig) ToKVConfig() map[string]interface{} {
	cfg := map[string]interface{}{}
	if len(m.Endpoints) > 0 {
		cfg["endpoints"] = m.Endpoints
	}
	if m.Address != "" {
		cfg["address"] = m.Address
	}
	if m.Token != "" {
		cfg["token"] = m.Token
	}
	if m.Mount != "" {
		cfg["mount"] = m.Mount
	}
	if m.DSN != "" {
		cfg["dsn"] = m.DSN
	}
	return cfg
}

// AuthConfig is the pluggable authentication predicate configuration.
// "simple" (HTTP Basic against the Users table) is the primary scheme
// named in spec §4.4; ldap/oidc/jwt are additional schemes the domain
// stack wires in (SPEC_FULL.md §2).
type AuthConfig struct {
	Scheme string            `yaml:"scheme"` // none, simple, ldap, oidc, jwt
	Realm  string            `yaml:"realm"`
	Users  map[string]string `yaml:"users"` // username -> bcrypt hash
	LDAP   LDAPConfig        `yaml:"ldap"`
	OIDC   OIDCConfig        `yaml:"oidc"`
	JWT    JWTConfig         `yaml:"jwt"`
}

// LDAPConfig configures the LDAP auth.type, trimmed to what this
// registry actually needs from a directory: authenticate, then map a
// group to the single "is authorized" predicate (spec has no RBAC).
type LDAPConfig struct {
	URL                string        `yaml:"url"`
	BindDN             string        `yaml:"bind_dn"`
	BindPassword       string        `yaml:"bind_password"`
	UserSearchBase     string        `yaml:"user_search_base"`
	UserSearchFilter   string        `yaml:"user_search_filter"`
	UsernameAttribute  string        `yaml:"username_attribute"`
	StartTLS           bool          `yaml:"start_tls"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	CACertFile         string        `yaml:"ca_cert_file"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
}

// OIDCConfig configures the OIDC auth.type: bearer tokens are
// validated against the issuer's discovery document.
type OIDCConfig struct {
	IssuerURL string   `yaml:"issuer_url"`
	ClientID  string   `yaml:"client_id"`
	Scopes    []string `yaml:"scopes"`
}

// JWTConfig configures the JWT bearer auth.type for the control
// plane, independent of OIDC discovery.
type JWTConfig struct {
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	PublicKeyFile string `yaml:"public_key_file"`
	Algorithm     string `yaml:"algorithm"`
}

// LoggingConfig configures the slog handler and optional file
// rotation through lumberjack.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuditConfig selects and configures the schema lifecycle event sink
// (internal/audit).
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sink    string `yaml:"sink"` // cassandra, syslog
	Cassandra CassandraConfig `yaml:"cassandra"`
	Syslog    SyslogConfig    `yaml:"syslog"`
}

// CassandraConfig is the audit Cassandra sink's connection settings.
type CassandraConfig struct {
	Hosts       []string `yaml:"hosts"`
	Keyspace    string   `yaml:"keyspace"`
	Consistency string   `yaml:"consistency"`
}

// SyslogConfig is the audit syslog sink's connection settings.
type SyslogConfig struct {
	Network string `yaml:"network"` // udp, tcp, "" for local
	Address string `yaml:"address"`
	Tag     string `yaml:"tag"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// RateLimitConfig configures the HTTP API's token-bucket rate limiter.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	BurstSize         int  `yaml:"burst_size"`
	PerClient         bool `yaml:"per_client"`
	PerEndpoint       bool `yaml:"per_endpoint"`
}

// DefaultConfig returns a configuration with default values, matching
// a single-node in-memory development deployment.
func DefaultConfig() *Config {
	return &Config{
		SchemaRegistry: SchemaRegistryConfig{
			EtcdPrefix: "/ldms/schema_registry",
			Listen:     "0.0.0.0:8080",
			Auth:       AuthConfig{Scheme: "none"},
			Members:    []MemberConfig{{Type: "memory"}},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "0.0.0.0:9090",
			Path:    "/metrics",
		},
	}
}

// Load loads configuration from a YAML file and environment
// variables. Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is from command-line argument, user-controlled input is expected
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LDMS_REGISTRY_LISTEN"); v != "" {
		c.SchemaRegistry.Listen = v
	}
	if v := os.Getenv("LDMS_REGISTRY_ETCD_PREFIX"); v != "" {
		c.SchemaRegistry.EtcdPrefix = v
	}
	if v := os.Getenv("LDMS_REGISTRY_KEYFILE"); v != "" {
		c.SchemaRegistry.KeyFile = v
	}
	if v := os.Getenv("LDMS_REGISTRY_CERTFILE"); v != "" {
		c.SchemaRegistry.CertFile = v
	}
	if v := os.Getenv("LDMS_REGISTRY_AUTH_SCHEME"); v != "" {
		c.SchemaRegistry.Auth.Scheme = v
	}
	if v := os.Getenv("LDMS_REGISTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LDMS_REGISTRY_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("VAULT_TOKEN"); v != "" {
		for i := range c.SchemaRegistry.Members {
			if c.SchemaRegistry.Members[i].Type == "vault" && c.SchemaRegistry.Members[i].Token == "" {
				c.SchemaRegistry.Members[i].Token = v
			}
		}
	}
}

var validSchemes = map[string]bool{
	"none": true, "simple": true, "ldap": true, "oidc": true, "jwt": true,
}

var validMemberTypes = map[string]bool{
	"memory": true, "etcd": true, "vault": true, "postgres": true, "mysql": true,
}

var validAuditSinks = map[string]bool{"cassandra": true, "syslog": true}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.SchemaRegistry.Listen == "" {
		return fmt.Errorf("schema_registry.listen is required")
	}
	if !validSchemes[strings.ToLower(c.SchemaRegistry.Auth.Scheme)] {
		return fmt.Errorf("invalid auth scheme: %s", c.SchemaRegistry.Auth.Scheme)
	}
	if len(c.SchemaRegistry.Members) == 0 {
		return fmt.Errorf("schema_registry.members must list at least one KV endpoint")
	}
	for _, m := range c.SchemaRegistry.Members {
		if !validMemberTypes[m.Type] {
			return fmt.Errorf("invalid member type: %s", m.Type)
		}
	}
	if (c.SchemaRegistry.KeyFile == "") != (c.SchemaRegistry.CertFile == "") {
		return fmt.Errorf("keyfile and certfile must both be set or both be empty")
	}
	if c.Audit.Enabled && !validAuditSinks[c.Audit.Sink] {
		return fmt.Errorf("invalid audit sink: %s", c.Audit.Sink)
	}
	return nil
}

// TLSEnabled reports whether the listener should serve TLS.
func (c *Config) TLSEnabled() bool {
	return c.SchemaRegistry.KeyFile != "" && c.SchemaRegistry.CertFile != ""
}
