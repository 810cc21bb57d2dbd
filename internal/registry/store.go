// Package registry is the content-addressed schema registry store:
// objects keyed by id, with secondary name and digest indexes, spec
// §4.2. It is grounded on
// original_source/src/maestro/schema_registry.py's SchemaRegistry
// class, repointed at the internal/kv abstraction instead of a direct
// etcd3 client.
package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ovis-hpc/ldms-registry/internal/cache"
	"github.com/ovis-hpc/ldms-registry/internal/kv"
	"github.com/ovis-hpc/ldms-registry/internal/schema"
)

// cacheCapacity bounds the number of parsed schema documents kept
// in memory; an id is a content digest so a cached entry never goes
// stale, this only caps memory growth.
const cacheCapacity = 4096

// Key prefixes, matching SchemaRegistry's _OBJECTS_PREFIX /
// _NAMES_PREFIX / _DIGESTS_PREFIX.
const (
	objectsPrefix = "objects/"
	namesPrefix   = "index/names/"
	digestsPrefix = "index/digests/"
)

// Store is the registry's object/name/digest store.
type Store struct {
	kv    kv.KV
	log   *slog.Logger
	cache *cache.SchemaCache
}

// New builds a Store over the given KV backend (typically a
// *kv.Proxy fronting one or more endpoints).
func New(backend kv.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: backend, log: logger, cache: cache.NewSchemaCache(cacheCapacity, 0)}
}

func objectKey(id string) string      { return objectsPrefix + id }
func nameKey(name, id string) string  { return namesPrefix + name + "/" + id }
func digestKey(hexDigest, id string) string { return digestsPrefix + hexDigest + "/" + id }

// Add registers s, returning its id. Registration is idempotent: if a
// schema with the identical content already exists, Add succeeds and
// returns the same id without error, since the id is derived from the
// schema name and its content digest (spec §3.3, §4.2 add_schema).
func (s *Store) Add(ctx context.Context, sch *schema.Schema) (string, error) {
	id := sch.ID()
	doc, err := sch.AsJSON()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSchema, err)
	}

	if err := s.kv.PutIfAbsent(ctx, objectKey(id), doc); err != nil {
		if !errors.Is(err, kv.ErrAlreadyExists) {
			return "", fmt.Errorf("registry: add %s: %w", id, err)
		}
	}
	digest := sch.Digest()
	hexDigest := hex.EncodeToString(digest[:])
	if err := s.kv.Put(ctx, nameKey(sch.Name, id), []byte{}); err != nil {
		return "", fmt.Errorf("registry: index name for %s: %w", id, err)
	}
	if err := s.kv.Put(ctx, digestKey(hexDigest, id), []byte{}); err != nil {
		return "", fmt.Errorf("registry: index digest for %s: %w", id, err)
	}
	s.log.Info("schema registered", "id", id, "name", sch.Name)
	return id, nil
}

// Get retrieves the schema stored under id.
func (s *Store) Get(ctx context.Context, id string) (*schema.Schema, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.(*schema.Schema), nil
	}
	data, err := s.kv.Get(ctx, objectKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, id)
		}
		return nil, fmt.Errorf("registry: get %s: %w", id, err)
	}
	sch, err := schema.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry: stored document for %s is invalid: %w", id, err)
	}
	s.cache.Set(id, sch)
	return sch, nil
}

// ListNames returns every distinct schema name in the registry.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	pairs, err := s.kv.ListPrefix(ctx, namesPrefix)
	if err != nil {
		return nil, fmt.Errorf("registry: list names: %w", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, p := range pairs {
		name, _, ok := splitIndexKey(p.Key, namesPrefix)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// ListVersionsByName returns every object id registered under name.
func (s *Store) ListVersionsByName(ctx context.Context, name string) ([]string, error) {
	pairs, err := s.kv.ListPrefix(ctx, namesPrefix+name+"/")
	if err != nil {
		return nil, fmt.Errorf("registry: list versions for %s: %w", name, err)
	}
	return idsFromPairs(pairs), nil
}

// ListDigests returns every distinct hex digest in the registry.
func (s *Store) ListDigests(ctx context.Context) ([]string, error) {
	pairs, err := s.kv.ListPrefix(ctx, digestsPrefix)
	if err != nil {
		return nil, fmt.Errorf("registry: list digests: %w", err)
	}
	seen := make(map[string]bool)
	var digests []string
	for _, p := range pairs {
		d, _, ok := splitIndexKey(p.Key, digestsPrefix)
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		digests = append(digests, d)
	}
	return digests, nil
}

// ListVersionsByDigest returns every object id sharing hexDigest.
func (s *Store) ListVersionsByDigest(ctx context.Context, hexDigest string) ([]string, error) {
	pairs, err := s.kv.ListPrefix(ctx, digestsPrefix+hexDigest+"/")
	if err != nil {
		return nil, fmt.Errorf("registry: list versions for digest %s: %w", hexDigest, err)
	}
	return idsFromPairs(pairs), nil
}

// Delete removes the schema stored under id along with its name and
// digest index entries. name and digest are derived directly from id
// (its last "-"-delimited segment is the hex digest, matching
// Schema.ID and original_source/src/maestro/schema_registry.py:1238's
// `name, digest = _id.rsplit('-', 1)`) rather than by fetching and
// parsing the stored object, so a dangling index can still be cleaned
// up even when the object row is already gone or corrupt. Each of the
// three deletes is best-effort: a not-found error from any one of them
// is not propagated, since the point of Delete is to leave no trace of
// id behind regardless of which keys still exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	name, hexDigest, ok := splitID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, id)
	}
	if err := deleteIgnoreNotFound(ctx, s.kv, objectKey(id)); err != nil {
		return fmt.Errorf("registry: delete %s: %w", id, err)
	}
	if err := deleteIgnoreNotFound(ctx, s.kv, nameKey(name, id)); err != nil {
		return fmt.Errorf("registry: delete name index for %s: %w", id, err)
	}
	if err := deleteIgnoreNotFound(ctx, s.kv, digestKey(hexDigest, id)); err != nil {
		return fmt.Errorf("registry: delete digest index for %s: %w", id, err)
	}
	s.cache.Delete(id)
	return nil
}

// splitID splits "<name>-<hex digest>" on its last "-", matching
// Schema.ID's construction.
func splitID(id string) (name, hexDigest string, ok bool) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return "", "", false
	}
	return id[:idx], id[idx+1:], true
}

func deleteIgnoreNotFound(ctx context.Context, backend kv.KV, key string) error {
	if err := backend.Delete(ctx, key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}
	return nil
}

// DeleteByName removes every schema registered under name, along with
// their name and digest index entries (spec §4.4 DELETE /names/<name>).
func (s *Store) DeleteByName(ctx context.Context, name string) error {
	ids, err := s.ListVersionsByName(ctx, name)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Purge removes every schema and index entry, matching
// SchemaRegistry.purge_database. This is an admin-only maintenance
// operation, never exposed over HTTP (spec §4.2, SPEC_FULL.md §3).
func (s *Store) Purge(ctx context.Context) error {
	if err := s.kv.DeletePrefix(ctx, objectsPrefix); err != nil {
		return fmt.Errorf("registry: purge objects: %w", err)
	}
	if err := s.kv.DeletePrefix(ctx, namesPrefix); err != nil {
		return fmt.Errorf("registry: purge name index: %w", err)
	}
	if err := s.kv.DeletePrefix(ctx, digestsPrefix); err != nil {
		return fmt.Errorf("registry: purge digest index: %w", err)
	}
	s.cache.Clear()
	return nil
}

// splitIndexKey splits "<prefix><segment>/<id>" into (segment, id).
func splitIndexKey(key, prefix string) (segment, id string, ok bool) {
	rest := strings.TrimPrefix(key, prefix)
	if rest == key {
		return "", "", false
	}
	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func idsFromPairs(pairs []kv.Pair) []string {
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		idx := strings.LastIndex(p.Key, "/")
		if idx < 0 {
			continue
		}
		ids = append(ids, p.Key[idx+1:])
	}
	return ids
}
