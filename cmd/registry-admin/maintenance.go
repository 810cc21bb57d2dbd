package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovis-hpc/ldms-registry/internal/config"
	"github.com/ovis-hpc/ldms-registry/internal/kv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/etcdkv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/memory"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/mysqlkv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/postgreskv"
	_ "github.com/ovis-hpc/ldms-registry/internal/kv/vaultkv"
	"github.com/ovis-hpc/ldms-registry/internal/registry"
)

// purge_database (original_source/src/maestro/schema_registry.py) is a
// maintenance operation reached only from a trusted operator's own
// process against storage directly, never over HTTP (spec §4.2); this
// CLI command is this module's equivalent of that maintenance branch,
// connecting to the configured backend(s) the same way
// cmd/registry-server does rather than going through the HTTP client.
func newPurgeCmd() *cobra.Command {
	var configPath string
	c := &cobra.Command{
		Use:   "purge",
		Short: "Irrecoverably delete every schema, name, and digest entry from the configured backend(s)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			backend, err := purgeBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			store := registry.New(backend, nil)
			if err := store.Purge(context.Background()); err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			fmt.Println("purged all schemas, names, and digests")
			return nil
		},
	}
	c.Flags().StringVar(&configPath, "config", "", "Path to the registry server's configuration file (required)")
	_ = c.MarkFlagRequired("config")
	return c
}

func purgeBackend(cfg *config.Config) (kv.KV, error) {
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
	return kv.NewProxy(backends, nil), nil
}
