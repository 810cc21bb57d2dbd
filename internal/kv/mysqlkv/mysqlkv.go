// Package mysqlkv is a MySQL-table-backed KV endpoint, using
// github.com/go-sql-driver/mysql, the MySQL counterpart to
// internal/kv/postgreskv.
package mysqlkv

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ovis-hpc/ldms-registry/internal/kv"
)

func init() {
	kv.Register(kv.BackendMySQL, func(config map[string]interface{}) (kv.KV, error) {
		dsn, _ := config["dsn"].(string)
		if dsn == "" {
			return nil, fmt.Errorf("mysqlkv: dsn is required")
		}
		return New(dsn)
	})
}

const schemaDDL = `CREATE TABLE IF NOT EXISTS registry_kv (
	` + "`key`" + ` VARCHAR(512) PRIMARY KEY,
	value LONGBLOB NOT NULL
)`

// Store is a kv.KV backed by a single (key, value) table.
type Store struct {
	db *sql.DB
}

// New opens a connection pool and ensures the backing table exists.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqlkv: open: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysqlkv: create table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM registry_kv WHERE `key` = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysqlkv: get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO registry_kv (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, value)
	if err != nil {
		return fmt.Errorf("mysqlkv: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT IGNORE INTO registry_kv (`key`, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("mysqlkv: put-if-absent %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mysqlkv: put-if-absent %s: %w", key, err)
	}
	if n == 0 {
		return kv.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM registry_kv WHERE `key` = ?", key)
	if err != nil {
		return fmt.Errorf("mysqlkv: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM registry_kv WHERE `key` LIKE ?", prefix+"%")
	if err != nil {
		return fmt.Errorf("mysqlkv: delete prefix %s: %w", prefix, err)
	}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]kv.Pair, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT `key`, value FROM registry_kv WHERE `key` LIKE ?", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("mysqlkv: list prefix %s: %w", prefix, err)
	}
	defer rows.Close()
	var out []kv.Pair
	for rows.Next() {
		var p kv.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, fmt.Errorf("mysqlkv: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
