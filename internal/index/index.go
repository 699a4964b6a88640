// Package index provides a SQLite-backed document and reference index with
// optional FTS5 full-text search. Workspaces are memory-only, so the index
// is normally opened on the :memory: DSN and lives exactly as long as the
// process.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN opens a private in-memory database shared across connections.
const MemoryDSN = "file:skald?mode=memory&cache=shared"

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	workspace  TEXT NOT NULL,
	name       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (workspace, name)
);

CREATE TABLE IF NOT EXISTS refs (
	workspace TEXT NOT NULL,
	source    TEXT NOT NULL,
	target    TEXT NOT NULL,
	UNIQUE(workspace, source, target)
);

CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(workspace, source);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(workspace, target);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens the SQLite database at dsn and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	// A shared-cache :memory: database disappears when its last connection
	// closes; a single connection keeps it alive and serializes access.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
