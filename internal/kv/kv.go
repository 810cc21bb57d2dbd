// Package kv is the pluggable key-value abstraction behind the schema
// registry's object/name/digest indexes (spec §4.2, §4.3). A KV is one
// backend endpoint; Proxy fails over across a list of them the way
// original_source/src/maestro/schema_registry.py's EtcdProxy fails
// over across etcd client endpoints.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key doesn't exist.
var ErrNotFound = errors.New("kv: key not found")

// ErrAlreadyExists is returned by PutIfAbsent when the key already
// holds a value.
var ErrAlreadyExists = errors.New("kv: key already exists")

// Pair is one key/value entry returned by a prefix scan.
type Pair struct {
	Key   string
	Value []byte
}

// KV is one backend endpoint's storage operations. Implementations
// must treat ErrNotFound/ErrAlreadyExists as the only expected
// business-logic errors; anything else is treated as a transport
// failure by Proxy and triggers failover.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// PutIfAbsent stores value only if key does not already exist. It
	// returns ErrAlreadyExists, not a transport error, if the key is
	// already present.
	PutIfAbsent(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	ListPrefix(ctx context.Context, prefix string) ([]Pair, error)
	Close() error
}
