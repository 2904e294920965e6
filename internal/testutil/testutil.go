// Package testutil provides shared test helpers for setting up git-backed
// article roots.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/bock/internal/index"
	"github.com/starford/bock/internal/storage"
)

// Wiki is a temporary article root backed by a git repository.
type Wiki struct {
	t     *testing.T
	Root  string
	Repo  *git.Repository
	clock time.Time
}

// NewWiki initialises an empty repository in a temp directory.
func NewWiki(t *testing.T) *Wiki {
	t.Helper()
	root, err := filepath.Abs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}
	return &Wiki{
		t:     t,
		Root:  root,
		Repo:  repo,
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Write creates or replaces a file and stages it.
func (w *Wiki) Write(rel, content string) {
	w.t.Helper()
	p := filepath.Join(w.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		w.t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		w.t.Fatal(err)
	}
	if _, err := w.worktree().Add(rel); err != nil {
		w.t.Fatalf("git add %s: %v", rel, err)
	}
}

// WriteUnstaged creates or replaces a file without staging it.
func (w *Wiki) WriteUnstaged(rel, content string) {
	w.t.Helper()
	p := filepath.Join(w.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		w.t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		w.t.Fatal(err)
	}
}

// Remove deletes a tracked file and stages the removal.
func (w *Wiki) Remove(rel string) {
	w.t.Helper()
	if _, err := w.worktree().Remove(rel); err != nil {
		w.t.Fatalf("git rm %s: %v", rel, err)
	}
}

// Commit records the staged changes one minute after the previous commit and
// returns the commit id.
func (w *Wiki) Commit(msg string) string {
	w.t.Helper()
	w.clock = w.clock.Add(time.Minute)
	// A commit removing the last tracked file leaves an empty index.
	hash, err := w.worktree().Commit(msg, &git.CommitOptions{
		Author:            &object.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: w.clock},
		AllowEmptyCommits: true,
	})
	if err != nil {
		w.t.Fatalf("git commit: %v", err)
	}
	return hash.String()
}

// Store returns a storage provider over the wiki root.
func (w *Wiki) Store() *storage.FS {
	w.t.Helper()
	store, err := storage.NewFS(w.Root, 0)
	if err != nil {
		w.t.Fatal(err)
	}
	return store
}

// IndexConfig returns an index configuration rooted at the wiki.
func (w *Wiki) IndexConfig() *index.Configuration {
	cfg := index.DefaultConfiguration(w.Root)
	cfg.LockTimeout = 500 * time.Millisecond
	return cfg
}

// BuildIndex creates the search index and runs one synchronization pass.
func (w *Wiki) BuildIndex() *index.Index {
	w.t.Helper()
	idx, err := index.Create(w.IndexConfig())
	if err != nil {
		w.t.Fatalf("create index: %v", err)
	}
	if _, err := index.Sync(idx, w.Store(), Logger()); err != nil {
		w.t.Fatalf("sync: %v", err)
	}
	return idx
}

func (w *Wiki) worktree() *git.Worktree {
	w.t.Helper()
	wt, err := w.Repo.Worktree()
	if err != nil {
		w.t.Fatalf("worktree: %v", err)
	}
	return wt
}

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
