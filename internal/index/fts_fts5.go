//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			workspace UNINDEXED,
			name UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, workspace, name, title, body string) error {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE workspace = ? AND name = ?`, workspace, name)
	_, err := tx.Exec(`INSERT INTO documents_fts (workspace, name, title, body) VALUES (?, ?, ?, ?)`,
		workspace, name, title, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, workspace, name string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE workspace = ? AND name = ?`, workspace, name)
}

func ftsRename(tx *sql.Tx, workspace, oldName, newName string) {
	_, _ = tx.Exec(`UPDATE documents_fts SET name = ? WHERE workspace = ? AND name = ?`, newName, workspace, oldName)
}

func ftsDeleteWorkspace(tx *sql.Tx, workspace string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE workspace = ?`, workspace)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(workspace, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT name,
		       title,
		       snippet(documents_fts, 3, '<b>', '</b>', '...', 64)
		FROM documents_fts
		WHERE documents_fts MATCH ? AND workspace = ?
		ORDER BY rank
		LIMIT ?
	`, query, workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Name, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
