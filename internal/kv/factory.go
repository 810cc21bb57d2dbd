package kv

import "fmt"

// BackendType names one pluggable KV backend implementation (spec
// §6.6 "members" entries carry one of these as their "type").
type BackendType string

const (
	BackendMemory   BackendType = "memory"
	BackendEtcd     BackendType = "etcd"
	BackendVault    BackendType = "vault"
	BackendPostgres BackendType = "postgres"
	BackendMySQL    BackendType = "mysql"
)

// Factory builds one KV endpoint from its config section.
type Factory func(config map[string]interface{}) (KV, error)

var factories = map[BackendType]Factory{}

// Register adds a backend factory, overwriting any previous
// registration for the same type. Backend packages call this from an
// init() function, mirroring the teacher's storage.Register pattern.
func Register(t BackendType, f Factory) {
	factories[t] = f
}

// Create builds a KV endpoint of type t from config.
func Create(t BackendType, config map[string]interface{}) (KV, error) {
	f, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("kv: unsupported backend type %q", t)
	}
	return f(config)
}

// IsSupported reports whether a factory is registered for t.
func IsSupported(t BackendType) bool {
	_, ok := factories[t]
	return ok
}

// SupportedTypes lists every registered backend type.
func SupportedTypes() []BackendType {
	out := make([]BackendType, 0, len(factories))
	for t := range factories {
		out = append(out, t)
	}
	return out
}
