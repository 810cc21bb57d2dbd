// Package memory is an in-process KV backend, used as the default in
// tests and single-node development deployments.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
)

func init() {
	kv.Register(kv.BackendMemory, func(config map[string]interface{}) (kv.KV, error) {
		return New(), nil
	})
}

// Store is a mutex-protected map-backed kv.KV.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New builds an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return kv.ErrAlreadyExists
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
		}
	}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]kv.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []kv.Pair
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			cp := make([]byte, len(v))
			copy(cp, v)
			out = append(out, kv.Pair{Key: k, Value: cp})
		}
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
