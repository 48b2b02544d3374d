// Package store provides the SQLite-backed local object store holding the
// contacts, schedules, and settings collections, with optional FTS5
// full-text contact search.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS contacts (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	doc          TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
CREATE INDEX IF NOT EXISTS idx_contacts_last_updated ON contacts(last_updated);

CREATE TABLE IF NOT EXISTS schedules (
	id   TEXT PRIMARY KEY,
	date DATETIME NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	doc  TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_schedules_date ON schedules(date);
CREATE INDEX IF NOT EXISTS idx_schedules_type ON schedules(type);

CREATE TABLE IF NOT EXISTS settings (
	id  TEXT PRIMARY KEY,
	doc TEXT NOT NULL DEFAULT '{}'
);
`

// Store wraps a sql.DB with collection-specific operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
