// Package store handles SQLite persistence.
package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for settings, counters and run history.
type Store struct {
	db *sql.DB
	records
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	store.records = records{kv: sqlKV{db: db}}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			cards INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			finished INTEGER NOT NULL,
			stars INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_cards (
			run_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			word_id TEXT NOT NULL,
			word TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			detected INTEGER NOT NULL,
			forced INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			stars INTEGER NOT NULL,
			avg_volume REAL NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_run_cards_word ON run_cards(word_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reset deletes every stored record and all history.
func (s *Store) Reset() error {
	for _, stmt := range []string{`DELETE FROM kv`, `DELETE FROM run_cards`, `DELETE FROM runs`} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type sqlKV struct {
	db *sql.DB
}

func (k sqlKV) get(key string) (string, error) {
	var value string
	err := k.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (k sqlKV) put(key, value string) error {
	_, err := k.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
