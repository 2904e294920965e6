package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/history"
	"github.com/starford/bock/internal/testutil"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExport(t *testing.T) {
	w := testutil.NewWiki(t)
	w.Write("Tech Notes/Shell.md", "v1\n")
	w.Commit("first")
	w.Write("Tech Notes/Shell.md", "ls and grep\n")
	w.Write("b.md", "bravo\n")
	w.Commit("second")

	store := w.Store()
	repo, err := history.Open(w.Root, store, testutil.Logger())
	require.NoError(t, err)
	db := openDB(t)

	n, err := Export(context.Background(), db, store, repo, testutil.Logger())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	a, err := db.Get("Tech_Notes/Shell")
	require.NoError(t, err)
	assert.Equal(t, "Shell", a.Title)
	assert.Equal(t, "ls and grep\n", a.Content)
	assert.Equal(t, ArticleID(articlepath.Parse("Tech Notes/Shell")), a.ID)

	revs, err := repo.ListRevisions(articlepath.Parse("Tech Notes/Shell"))
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.True(t, a.Created.Equal(revs[1].Committed), "created = %s, want %s", a.Created, revs[1].Committed)

	matches, err := db.Search("grep", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Tech_Notes/Shell", matches[0].URI)
}

func TestExportReplacesPreviousRun(t *testing.T) {
	w := testutil.NewWiki(t)
	w.Write("a.md", "a\n")
	w.Write("b.md", "b\n")
	w.Commit("init")
	store := w.Store()
	db := openDB(t)

	_, err := Export(context.Background(), db, store, nil, testutil.Logger())
	require.NoError(t, err)

	w.Remove("b.md")
	w.Commit("drop b")
	n, err := Export(context.Background(), db, store, nil, testutil.Logger())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = db.Get("b")
	assert.Error(t, err)
}

func TestArticleIDStable(t *testing.T) {
	p := articlepath.Parse("ns/a")
	assert.Equal(t, ArticleID(p), ArticleID(articlepath.Parse("ns/a")))
	assert.NotEqual(t, ArticleID(p), ArticleID(articlepath.Parse("ns/b")))
}

func TestWithPragmas(t *testing.T) {
	cases := map[string]string{
		"articles.db":                    "articles.db?_journal_mode=WAL&_busy_timeout=5000",
		"articles.db?_foreign_keys=1":    "articles.db?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000",
		"articles.db?_busy_timeout=100":  "articles.db?_busy_timeout=100&_journal_mode=WAL",
		"file:a.db?_journal_mode=DELETE": "file:a.db?_journal_mode=DELETE&_busy_timeout=5000",
	}
	for dsn, want := range cases {
		assert.Equal(t, want, withPragmas(dsn), dsn)
	}
}

func TestOpenWithQueryDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.db")
	db, err := Open(path + "?_foreign_keys=1")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Replace([]Article{{ID: "1", URI: "a", Title: "a", Content: "x", Created: time.Unix(0, 0), Modified: time.Unix(0, 0)}}))
	assert.FileExists(t, path)
}
