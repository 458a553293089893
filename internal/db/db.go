package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite snapshot database connection
type DB struct {
	conn *sql.DB
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	data_dir TEXT NOT NULL,
	persons INTEGER NOT NULL,
	flights INTEGER NOT NULL,
	documents INTEGER NOT NULL,
	emails INTEGER NOT NULL,
	links INTEGER NOT NULL,
	skipped_rows INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS persons (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	nationality TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	entity_type TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT '',
	in_black_book INTEGER NOT NULL DEFAULT 0,
	in_network INTEGER NOT NULL DEFAULT 0,
	flights INTEGER NOT NULL DEFAULT 0,
	documents INTEGER NOT NULL DEFAULT 0,
	connections INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS aliases (
	alias TEXT PRIMARY KEY,
	person_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS images (
	person_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (person_id, path)
);
CREATE TABLE IF NOT EXISTS links (
	source_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	target_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	weight INTEGER NOT NULL,
	types TEXT NOT NULL DEFAULT '[]',
	sources TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (source_id, target_id)
);
CREATE INDEX IF NOT EXISTS links_target ON links(target_id);
CREATE VIRTUAL TABLE IF NOT EXISTS persons_fts USING fts5(id UNINDEXED, name, aliases);
`

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled and
// creates the snapshot schema if missing
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}
