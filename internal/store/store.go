// Package store persists extension state, per-extension settings and watch
// history in a single sqlite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS extensions (
	type    TEXT NOT NULL,
	id      TEXT NOT NULL,
	enabled INTEGER NOT NULL,
	PRIMARY KEY (type, id)
);
CREATE TABLE IF NOT EXISTS priority (
	type     TEXT NOT NULL,
	id       TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (type, id)
);
CREATE TABLE IF NOT EXISTS settings (
	scope TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (scope, key)
);
CREATE TABLE IF NOT EXISTS history (
	extension  TEXT NOT NULL,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL,
	type       TEXT NOT NULL,
	season     INTEGER NOT NULL,
	episode    INTEGER NOT NULL,
	position   REAL NOT NULL,
	duration   REAL NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (extension, id, season, episode)
);
`

// Store wraps the application database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
