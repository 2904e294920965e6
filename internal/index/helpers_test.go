package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/starford/bock/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testWiki returns an empty article root, its storage and an index
// configuration with short lock timeouts.
func testWiki(t *testing.T) (string, *storage.FS, *Configuration) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root, 0)
	require.NoError(t, err)
	cfg := DefaultConfiguration(store.Root())
	cfg.LockTimeout = 500 * time.Millisecond
	return store.Root(), store, cfg
}

// testIndex is testWiki plus a freshly created index.
func testIndex(t *testing.T) (string, *storage.FS, *Index) {
	t.Helper()
	root, store, cfg := testWiki(t)
	idx, err := Create(cfg)
	require.NoError(t, err)
	return root, store, idx
}

func writeArticle(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// touch moves the mtime of a file forward so the next pass sees it as newer.
func touch(t *testing.T, root, rel string, by time.Duration) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(p)
	require.NoError(t, err)
	mt := info.ModTime().Add(by)
	require.NoError(t, os.Chtimes(p, mt, mt))
}

func sortedKeys(m map[string]float64) []string {
	out := lo.Keys(m)
	sort.Strings(out)
	return out
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func removeArticle(t *testing.T, root, rel string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(root, filepath.FromSlash(rel))))
}
