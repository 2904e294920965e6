// Package export writes every article into a standalone SQLite database
// (articles.db) for consumers that cannot read the search index.
package export

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
	id       TEXT PRIMARY KEY,
	uri      TEXT NOT NULL UNIQUE,
	title    TEXT NOT NULL,
	content  TEXT NOT NULL DEFAULT '',
	created  DATETIME NOT NULL,
	modified DATETIME NOT NULL
);
`

// DB wraps a sql.DB with export-specific operations.
type DB struct {
	conn *sql.DB
}

// Article is one row of the articles table.
type Article struct {
	ID       string
	URI      string
	Title    string
	Content  string
	Created  time.Time
	Modified time.Time
}

// Match is one search hit against the exported database.
type Match struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("export: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// withPragmas adds WAL journaling and a busy timeout to dsn unless it
// already sets them.
func withPragmas(dsn string) string {
	for _, p := range []string{"_journal_mode=WAL", "_busy_timeout=5000"} {
		key := p[:strings.IndexByte(p, '=')+1]
		if strings.Contains(dsn, "?"+key) || strings.Contains(dsn, "&"+key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}
	return dsn
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Replace swaps the whole table contents for articles in one transaction.
func (db *DB) Replace(articles []Article) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("export: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM articles`); err != nil {
		return fmt.Errorf("export: clear articles: %w", err)
	}
	if err := ftsClear(tx); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO articles (id, uri, title, content, created, modified)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("export: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		if _, err := stmt.Exec(a.ID, a.URI, a.Title, a.Content, a.Created.UTC(), a.Modified.UTC()); err != nil {
			return fmt.Errorf("export: insert %s: %w", a.URI, err)
		}
		if err := ftsInsert(tx, a); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get returns one exported article by uri.
func (db *DB) Get(uri string) (*Article, error) {
	var a Article
	err := db.conn.QueryRow(`
		SELECT id, uri, title, content, created, modified FROM articles WHERE uri = ?
	`, uri).Scan(&a.ID, &a.URI, &a.Title, &a.Content, &a.Created, &a.Modified)
	if err != nil {
		return nil, fmt.Errorf("export: get %s: %w", uri, err)
	}
	return &a, nil
}

// Count returns the number of exported articles.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("export: count: %w", err)
	}
	return n, nil
}
