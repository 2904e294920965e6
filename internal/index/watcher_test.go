package index

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs Watch in the background until the test ends and
// returns the article root, the index configuration and a pass counter.
func startWatcher(t *testing.T, opts WatchOptions) (string, *Configuration, *atomic.Int32) {
	t.Helper()
	root, store, cfg := testWiki(t)

	var passes atomic.Int32
	opts.OnPass = func(SyncStats, error) { passes.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, cfg, store, opts, testLogger()) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return passes.Load() >= 1
	}, "initial pass did not run")
	return root, cfg, &passes
}

func indexedPaths(cfg *Configuration) map[string]float64 {
	idx, ok := Open(cfg, testLogger())
	if !ok {
		return nil
	}
	docs, err := idx.Documents()
	if err != nil {
		return nil
	}
	return docs
}

func TestWatcher_CreatesIndexOnStartup(t *testing.T) {
	root, store, cfg := testWiki(t)
	writeArticle(t, root, "existing.md", "already here")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var passes atomic.Int32
	go func() {
		done <- Watch(ctx, cfg, store, WatchOptions{
			Mode:   WatchPoll,
			OnPass: func(SyncStats, error) { passes.Add(1) },
		}, testLogger())
	}()

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return passes.Load() >= 1
	}, "initial pass did not run")
	cancel()
	require.NoError(t, <-done)

	assert.True(t, Exists(cfg))
	_, ok := indexedPaths(cfg)["existing"]
	assert.True(t, ok, "existing article should be indexed on startup")
}

func TestWatcher_NotifyIndexesNewFile(t *testing.T) {
	root, cfg, _ := startWatcher(t, WatchOptions{Mode: WatchNotify, Debounce: 50 * time.Millisecond})

	writeArticle(t, root, "new.md", "# New")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := indexedPaths(cfg)["new"]
		return ok
	}, "new file not indexed by watcher")
}

func TestWatcher_NotifyNewDirWatched(t *testing.T) {
	root, cfg, _ := startWatcher(t, WatchOptions{Mode: WatchNotify, Debounce: 50 * time.Millisecond})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	time.Sleep(100 * time.Millisecond)
	writeArticle(t, root, "sub/inner.md", "inner")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := indexedPaths(cfg)["sub/inner"]
		return ok
	}, "file in new directory not indexed")
}

func TestWatcher_NotifyDeleteAndDirRename(t *testing.T) {
	root, cfg, _ := startWatcher(t, WatchOptions{Mode: WatchNotify, Debounce: 50 * time.Millisecond})

	writeArticle(t, root, "a.md", "a")
	writeArticle(t, root, "dir/b.md", "b")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		docs := indexedPaths(cfg)
		_, a := docs["a"]
		_, b := docs["dir/b"]
		return a && b
	}, "articles not indexed")

	require.NoError(t, os.Remove(filepath.Join(root, "a.md")))
	require.NoError(t, os.Rename(filepath.Join(root, "dir"), filepath.Join(root, "renamed")))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		docs := indexedPaths(cfg)
		_, a := docs["a"]
		_, oldB := docs["dir/b"]
		_, newB := docs["renamed/b"]
		return !a && !oldB && newB
	}, "delete and directory rename not reconciled")
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	root, _, passes := startWatcher(t, WatchOptions{Mode: WatchNotify, Debounce: 50 * time.Millisecond})
	before := passes.Load()

	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte("png"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, before, passes.Load(), "non-Markdown changes must not trigger a pass")
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	root, cfg, passes := startWatcher(t, WatchOptions{Mode: WatchNotify, Debounce: 300 * time.Millisecond})
	before := passes.Load()

	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		writeArticle(t, root, name, name)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return len(indexedPaths(cfg)) == 4
	}, "burst not indexed")
	assert.LessOrEqual(t, passes.Load()-before, int32(2), "a burst should collapse into few passes")
}

func TestWatcher_Polling(t *testing.T) {
	root, cfg, _ := startWatcher(t, WatchOptions{Mode: WatchPoll, PollInterval: 100 * time.Millisecond})

	writeArticle(t, root, "polled.md", "found by polling")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := indexedPaths(cfg)["polled"]
		return ok
	}, "polling watcher did not index new file")
}

// exhaustWatches makes every directory registration fail as if the inotify
// watch limit had been reached.
func exhaustWatches(t *testing.T) {
	t.Helper()
	orig := addWatch
	addWatch = func(*fsnotify.Watcher, string) error { return syscall.ENOSPC }
	t.Cleanup(func() { addWatch = orig })
}

func TestWatcher_AutoPollsWhenRegistrationFails(t *testing.T) {
	exhaustWatches(t)
	root, cfg, _ := startWatcher(t, WatchOptions{Mode: WatchAuto, PollInterval: 100 * time.Millisecond})

	writeArticle(t, root, "polled.md", "found by polling")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := indexedPaths(cfg)["polled"]
		return ok
	}, "auto watcher did not fall back to polling")
}

func TestWatcher_NotifyFailsWhenRegistrationFails(t *testing.T) {
	exhaustWatches(t)
	_, store, cfg := testWiki(t)

	err := Watch(context.Background(), cfg, store, WatchOptions{Mode: WatchNotify}, testLogger())
	assert.ErrorIs(t, err, syscall.ENOSPC)
}
