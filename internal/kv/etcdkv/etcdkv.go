// Package etcdkv is the default production KV backend, wrapping
// go.etcd.io/etcd/client/v3. It is the direct Go analog of
// original_source/src/maestro/schema_registry.py's EtcdProxy, which
// drove a list of etcd3 Client objects the same way kv.Proxy drives a
// list of kv.KV endpoints.
package etcdkv

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
)

func init() {
	kv.Register(kv.BackendEtcd, func(config map[string]interface{}) (kv.KV, error) {
		endpoints, _ := config["endpoints"].([]string)
		if len(endpoints) == 0 {
			if ep, ok := config["endpoint"].(string); ok && ep != "" {
				endpoints = []string{ep}
			}
		}
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("etcdkv: no endpoints configured")
		}
		dialTimeout := 5 * time.Second
		return New(endpoints, dialTimeout)
	})
}

// Store is a kv.KV backed by one etcd client connected to a set of
// cluster endpoints (etcd itself load-balances across them; Proxy's
// failover is reserved for failing over across distinct clusters/KV
// backend types).
type Store struct {
	client *clientv3.Client
}

// New dials an etcd client for the given endpoints.
func New(endpoints []string, dialTimeout time.Duration) (*Store, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("etcdkv: dial: %w", err)
	}
	return &Store{client: c}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("etcdkv: get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, kv.ErrNotFound
	}
	return resp.Kvs[0].Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Put(ctx, key, string(value))
	if err != nil {
		return fmt.Errorf("etcdkv: put %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent uses a single-key transaction conditioned on the key's
// create revision being zero (i.e. absent), the standard etcd
// compare-and-swap idiom for "insert if not exists".
func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	txn := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(value)))
	resp, err := txn.Commit()
	if err != nil {
		return fmt.Errorf("etcdkv: put-if-absent %s: %w", key, err)
	}
	if !resp.Succeeded {
		return kv.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("etcdkv: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.client.Delete(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("etcdkv: delete prefix %s: %w", prefix, err)
	}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]kv.Pair, error) {
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcdkv: list prefix %s: %w", prefix, err)
	}
	out := make([]kv.Pair, len(resp.Kvs))
	for i, kvPair := range resp.Kvs {
		out[i] = kv.Pair{Key: string(kvPair.Key), Value: kvPair.Value}
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
