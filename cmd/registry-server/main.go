// Package main is the entry point for the LDMS schema registry HTTP
// server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ovis-hpc/ldms-registry/internal/api"
	"github.com/ovis-hpc/ldms-registry/internal/audit"
	"github.com/ovis-hpc/ldms-registry/internal/audit/cassandrasink"
	"github.com/ovis-hpc/ldms-registry/internal/audit/syslogsink"
	"github.com/ovis-hpc/ldms-registry/internal/auth"
	"github.com/ovis-hpc/ldms-registry/internal/config"
	"github.com/ovis-hpc/ldms-registry/internal/kv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/etcdkv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/memory"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/mysqlkv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/postgreskv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/vaultkv"
	"github.com/ovis-hpc/ldms-registry/internal/registry"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ldms-registry-server %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting schema registry",
		slog.String("version", version),
		slog.String("listen", cfg.SchemaRegistry.Listen),
		slog.Int("members", len(cfg.SchemaRegistry.Members)),
	)

	backend, err := createBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to create storage backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := registry.New(backend, logger)

	var serverOpts []api.ServerOption

	if cfg.SchemaRegistry.Auth.Scheme != "" && cfg.SchemaRegistry.Auth.Scheme != "none" {
		authenticator, err := createAuthenticator(cfg.SchemaRegistry.Auth)
		if err != nil {
			logger.Error("failed to configure authentication", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("authentication enabled", slog.String("scheme", cfg.SchemaRegistry.Auth.Scheme))
		serverOpts = append(serverOpts, api.WithAuth(authenticator))
	}

	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			slog.Int("requests_per_second", cfg.RateLimit.RequestsPerSecond),
			slog.Int("burst_size", cfg.RateLimit.BurstSize),
		)
		serverOpts = append(serverOpts, api.WithRateLimiter(auth.NewRateLimiter(cfg.RateLimit)))
	}

	var auditLogger *audit.Logger
	if cfg.Audit.Enabled {
		sink, err := createAuditSink(cfg.Audit)
		if err != nil {
			logger.Error("failed to configure audit sink", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("audit logging enabled", slog.String("sink", cfg.Audit.Sink))
		auditLogger = audit.NewLogger(sink, logger, []audit.EventType{
			audit.EventSchemaRegister,
			audit.EventSchemaDelete,
			audit.EventPurgeDatabase,
			audit.EventAuthSuccess,
			audit.EventAuthFailure,
			audit.EventAuthForbidden,
		})
		serverOpts = append(serverOpts, api.WithAudit(auditLogger))
	}

	if cfg.TLSEnabled() {
		tlsManager, err := auth.NewTLSManager(cfg.SchemaRegistry.CertFile, cfg.SchemaRegistry.KeyFile)
		if err != nil {
			logger.Error("failed to configure TLS", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("TLS enabled")
		serverOpts = append(serverOpts, api.WithTLS(tlsManager))
	}

	server := api.NewServer(cfg, store, logger, serverOpts...)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("shutting down", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
		if err := backend.Close(); err != nil {
			logger.Error("storage close error", slog.String("error", err.Error()))
		}
	}

	logger.Info("shutdown complete")
}

// newLogger builds the slog handler per cfg, optionally rotating
// through lumberjack when a log file path is configured.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

// createBackend builds the kv.KV each configured member describes and
// fronts them behind a failover kv.Proxy, including when there is
// exactly one member.
func createBackend(cfg *config.Config, logger *slog.Logger) (kv.KV, error) {
	members := cfg.SchemaRegistry.Members
	if len(members) == 0 {
		return nil, fmt.Errorf("schema_registry.members must list at least one endpoint")
	}

	backends := make([]kv.KV, 0, len(members))
	for _, m := range members {
		backend, err := kv.Create(kv.BackendType(m.Type), m.ToKVConfig())
		if err != nil {
			return nil, fmt.Errorf("create %s backend: %w", m.Type, err)
		}
		backends = append(backends, backend)
	}

	// Always go through Proxy, even for a single member: Proxy is what
	// normalizes a raw transport failure into ErrAllBackendsDown, which
	// is the only error statusFor maps to 503 (spec §7). A bare single
	// backend returned directly would let its own transport error
	// fall through to 500 instead.
	return kv.NewProxy(backends, logger), nil
}

func createAuthenticator(cfg config.AuthConfig) (*auth.Authenticator, error) {
	var ldapP *auth.LDAPProvider
	var oidcP *auth.OIDCProvider
	var jwtP *auth.JWTProvider
	var err error

	switch cfg.Scheme {
	case "ldap":
		ldapP, err = auth.NewLDAPProvider(cfg.LDAP)
	case "oidc":
		oidcP, err = auth.NewOIDCProvider(context.Background(), cfg.OIDC)
	case "jwt":
		jwtP, err = auth.NewJWTProvider(cfg.JWT)
	}
	if err != nil {
		return nil, err
	}
	return auth.New(cfg, ldapP, oidcP, jwtP), nil
}

func createAuditSink(cfg config.AuditConfig) (audit.Sink, error) {
	switch cfg.Sink {
	case "cassandra":
		return cassandrasink.New(cassandrasink.Config{
			Hosts:       cfg.Cassandra.Hosts,
			Keyspace:    cfg.Cassandra.Keyspace,
			Consistency: cfg.Cassandra.Consistency,
		})
	case "syslog":
		return syslogsink.New(syslogsink.Config{
			Network: cfg.Syslog.Network,
			Address: cfg.Syslog.Address,
			Tag:     cfg.Syslog.Tag,
		})
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", cfg.Sink)
	}
}
