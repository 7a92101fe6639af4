// internal/session/kv.go
//
// String key-value stores backing persisted play sessions.
// Implementations:
//   - memory: map guarded by an RWMutex; state is lost on restart.
//   - sqlite: one table of (key TEXT PRIMARY KEY, value TEXT) with upserts.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrBadTable = errors.New("bad table name for session store")
	ErrStale    = errors.New("session belongs to another puzzle")
	ErrCorrupt  = errors.New("session record is corrupt")
)

// KV is a string key-value store.
type KV interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete succeeds whether or not key existed.
	Delete(ctx context.Context, key string) error
}

type memoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV constructs an in-memory KV.
func NewMemoryKV() KV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func (m *memoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type sqliteKV struct {
	table string
	db    *sql.DB
}

func validTable(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_') {
			return false
		}
	}
	return true
}

// NewSQLiteKV creates (if needed) table in db and returns a KV over it. The
// table name is interpolated into SQL, so only letters and underscores are accepted.
func NewSQLiteKV(db *sql.DB, table string) (KV, error) {
	if !validTable(table) {
		return nil, ErrBadTable
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ` + table + ` (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);`); err != nil {
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	return &sqliteKV{table: table, db: db}, nil
}

func (s *sqliteKV) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM `+s.table+` WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *sqliteKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO `+s.table+` (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value,
	updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')`, key, value)
	return err
}

func (s *sqliteKV) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE key = ?`, key)
	return err
}
