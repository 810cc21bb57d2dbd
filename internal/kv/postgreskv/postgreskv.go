// Package postgreskv is a Postgres-table-backed KV endpoint, using
// github.com/lib/pq. Grounded on the teacher's PostgreSQL storage
// config section (internal/config.go's PostgreSQLConfig), repointed at
// a single flat kv table instead of the teacher's relational schema
// tables.
package postgreskv

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
)

func init() {
	kv.Register(kv.BackendPostgres, func(config map[string]interface{}) (kv.KV, error) {
		dsn, _ := config["dsn"].(string)
		if dsn == "" {
			return nil, fmt.Errorf("postgreskv: dsn is required")
		}
		return New(dsn)
	})
}

const schemaDDL = `CREATE TABLE IF NOT EXISTS registry_kv (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
)`

// Store is a kv.KV backed by a single (key, value) table.
type Store struct {
	db *sql.DB
}

// New opens a connection pool and ensures the backing table exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgreskv: open: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgreskv: create table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM registry_kv WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgreskv: get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("postgreskv: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_kv (key, value) VALUES ($1, $2) ON CONFLICT DO NOTHING`, key, value)
	if err != nil {
		return fmt.Errorf("postgreskv: put-if-absent %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgreskv: put-if-absent %s: %w", key, err)
	}
	if n == 0 {
		return kv.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM registry_kv WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgreskv: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM registry_kv WHERE key LIKE $1`, prefix+"%")
	if err != nil {
		return fmt.Errorf("postgreskv: delete prefix %s: %w", prefix, err)
	}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]kv.Pair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM registry_kv WHERE key LIKE $1`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("postgreskv: list prefix %s: %w", prefix, err)
	}
	defer rows.Close()
	var out []kv.Pair
	for rows.Next() {
		var p kv.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, fmt.Errorf("postgreskv: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
