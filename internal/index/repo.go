package index

import (
	"fmt"
	"time"
)

// DocRow represents a row in the documents table.
type DocRow struct {
	Workspace string
	Name      string
	Title     string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocRow, body string, refs []string) error
	DeleteDocument(workspace, name string) error
	RenameDocument(workspace, oldName, newName string) error
	DeleteWorkspace(workspace string) error
	Search(workspace, query string, limit int) ([]SearchResult, error)
	Referencing(workspace, target string) ([]string, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)

// UpsertDocument inserts or replaces a document, its FTS entry, and its
// outgoing references within a transaction.
func (db *DB) UpsertDocument(d DocRow, body string, refs []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (workspace, name, title, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(workspace, name) DO UPDATE SET
			title      = excluded.title,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Workspace, d.Name, d.Title, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Workspace, d.Name, d.Title, body); err != nil {
		return err
	}

	// Replace references: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM refs WHERE workspace = ? AND source = ?`, d.Workspace, d.Name)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (workspace, source, target) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range refs {
			if _, err := stmt.Exec(d.Workspace, d.Name, target); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and its outgoing refs.
func (db *DB) DeleteDocument(workspace, name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, workspace, name)
	_, _ = tx.Exec(`DELETE FROM refs WHERE workspace = ? AND source = ?`, workspace, name)
	_, _ = tx.Exec(`DELETE FROM documents WHERE workspace = ? AND name = ?`, workspace, name)

	return tx.Commit()
}

// RenameDocument re-keys a document and its outgoing references.
func (db *DB) RenameDocument(workspace, oldName, newName string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`UPDATE documents SET name = ? WHERE workspace = ? AND name = ?`, newName, workspace, oldName)
	_, _ = tx.Exec(`UPDATE refs SET source = ? WHERE workspace = ? AND source = ?`, newName, workspace, oldName)
	_, _ = tx.Exec(`UPDATE refs SET target = ? WHERE workspace = ? AND target = ?`, newName, workspace, oldName)
	ftsRename(tx, workspace, oldName, newName)

	return tx.Commit()
}

// DeleteWorkspace drops every row belonging to a workspace.
func (db *DB) DeleteWorkspace(workspace string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteWorkspace(tx, workspace)
	_, _ = tx.Exec(`DELETE FROM refs WHERE workspace = ?`, workspace)
	_, _ = tx.Exec(`DELETE FROM documents WHERE workspace = ?`, workspace)

	return tx.Commit()
}

// Referencing returns the documents in a workspace whose bodies reference
// the given target asset.
func (db *DB) Referencing(workspace, target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM refs WHERE workspace = ? AND target = ?`, workspace, target)
	if err != nil {
		return nil, fmt.Errorf("index: referencing: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
