// Package localstore provides the durable per-user, per-collection
// persistence layer backed by a SQLite key-value table.
package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/laguz/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Provider is the durable map from string key to byte blob. Get returns
// apperr.ErrNotFound when the key is absent. Any other error is a storage
// I/O failure and is fatal for the triggering call.
type Provider interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// KV implements Provider backed by SQLite.
type KV struct {
	conn *sql.DB
}

// Verify *KV satisfies Provider at compile time.
var _ Provider = (*KV)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*KV, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("localstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("localstore: apply schema: %w", err)
	}
	return &KV{conn: conn}, nil
}

// Get returns the value stored under key.
func (kv *KV) Get(key string) ([]byte, error) {
	var value []byte
	err := kv.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (kv *KV) Put(key string, value []byte) error {
	_, err := kv.conn.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("localstore: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (kv *KV) Delete(key string) error {
	if _, err := kv.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localstore: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (kv *KV) Close() error {
	return kv.conn.Close()
}
