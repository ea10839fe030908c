package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore writes through to a single-table SQLite database, so every
// setter is durable on return and Save has nothing left to do.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prefs db: %w", err)
	}
	// One connection keeps writes serialised.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, stmt := range []string{"PRAGMA synchronous=FULL", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init prefs db: %w", err)
		}
	}
	return &SQLiteStore{db: db, timeout: 5 * time.Second}, nil
}

func (s *SQLiteStore) lookup(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM prefs WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) store(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) GetInt(key string, def int) int {
	if v, ok := s.lookup(key); ok {
		return parseInt(v, def)
	}
	return def
}

func (s *SQLiteStore) SetInt(key string, value int) error {
	return s.store(key, fmt.Sprint(value))
}

func (s *SQLiteStore) GetFloat(key string, def float64) float64 {
	if v, ok := s.lookup(key); ok {
		return parseFloat(v, def)
	}
	return def
}

func (s *SQLiteStore) SetFloat(key string, value float64) error {
	return s.store(key, formatFloat(value))
}

func (s *SQLiteStore) GetString(key string, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

func (s *SQLiteStore) SetString(key string, value string) error {
	return s.store(key, value)
}

func (s *SQLiteStore) HasKey(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

func (s *SQLiteStore) Save() error { return nil }

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
