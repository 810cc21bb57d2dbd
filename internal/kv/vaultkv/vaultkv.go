// Package vaultkv is a KV backend built on Vault's KV-v2 secrets
// engine, one of the pluggable endpoints kv.Proxy can fail over
// across. Grounded on the teacher's internal/storage/vault/store.go,
// which uses the same github.com/hashicorp/vault/api client for
// credential/secret storage; here it stores the registry's
// content-addressed objects instead.
package vaultkv

import (
	"context"
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
)

func init() {
	kv.Register(kv.BackendVault, func(config map[string]interface{}) (kv.KV, error) {
		addr, _ := config["address"].(string)
		token, _ := config["token"].(string)
		mount, _ := config["mount"].(string)
		if mount == "" {
			mount = "secret"
		}
		if addr == "" {
			return nil, fmt.Errorf("vaultkv: address is required")
		}
		cfg := vaultapi.DefaultConfig()
		cfg.Address = addr
		client, err := vaultapi.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("vaultkv: client: %w", err)
		}
		if token != "" {
			client.SetToken(token)
		}
		return &Store{client: client, mount: mount}, nil
	})
}

// Store stores each key as one KV-v2 secret under mount/data/<key>,
// with the value carried in a single "value" field.
type Store struct {
	client *vaultapi.Client
	mount  string
}

func (s *Store) dataPath(key string) string {
	return fmt.Sprintf("%s/data/%s", s.mount, key)
}

func (s *Store) metadataPath(key string) string {
	return fmt.Sprintf("%s/metadata/%s", s.mount, key)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.dataPath(key))
	if err != nil {
		return nil, fmt.Errorf("vaultkv: get %s: %w", key, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, kv.ErrNotFound
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, kv.ErrNotFound
	}
	v, ok := data["value"].(string)
	if !ok {
		return nil, kv.ErrNotFound
	}
	return []byte(v), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Logical().WriteWithContext(ctx, s.dataPath(key), map[string]interface{}{
		"data": map[string]interface{}{"value": string(value)},
	})
	if err != nil {
		return fmt.Errorf("vaultkv: put %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent checks for existence first; Vault's KV-v2 API has no
// native compare-and-swap on value content (its "cas" option checks
// version number, not absence in a race-free single call), so this
// accepts the benign TOCTOU window the teacher's own Vault store
// likewise accepts for non-counter writes.
func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	_, err := s.Get(ctx, key)
	if err == nil {
		return kv.ErrAlreadyExists
	}
	if err != kv.ErrNotFound {
		return err
	}
	return s.Put(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.Logical().DeleteWithContext(ctx, s.metadataPath(key))
	if err != nil {
		return fmt.Errorf("vaultkv: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	pairs, err := s.ListPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := s.Delete(ctx, p.Key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]kv.Pair, error) {
	dir := strings.TrimSuffix(prefix, "/")
	secret, err := s.client.Logical().ListWithContext(ctx, fmt.Sprintf("%s/metadata/%s", s.mount, dir))
	if err != nil {
		return nil, fmt.Errorf("vaultkv: list prefix %s: %w", prefix, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	keysRaw, _ := secret.Data["keys"].([]interface{})
	var out []kv.Pair
	for _, kRaw := range keysRaw {
		name, _ := kRaw.(string)
		fullKey := dir + "/" + name
		v, err := s.Get(ctx, fullKey)
		if err != nil {
			continue
		}
		out = append(out, kv.Pair{Key: fullKey, Value: v})
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
