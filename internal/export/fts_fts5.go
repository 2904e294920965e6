//go:build sqlite_fts5

package export

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
			uri UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsClear(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM articles_fts`); err != nil {
		return fmt.Errorf("export: clear fts: %w", err)
	}
	return nil
}

func ftsInsert(tx *sql.Tx, a Article) error {
	_, err := tx.Exec(`INSERT INTO articles_fts (uri, title, content) VALUES (?, ?, ?)`,
		a.URI, a.Title, a.Content)
	if err != nil {
		return fmt.Errorf("export: insert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matches with snippets.
func (db *DB) Search(query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT uri,
		       title,
		       snippet(articles_fts, 2, '<mark>', '</mark>', '...', 64)
		FROM articles_fts
		WHERE articles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("export: search: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.URI, &m.Title, &m.Snippet); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
