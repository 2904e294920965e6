package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/storage"
)

// Watch modes.
const (
	WatchAuto   = "auto"
	WatchNotify = "notify"
	WatchPoll   = "poll"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	Mode         string
	Debounce     time.Duration
	PollInterval time.Duration
	MaxDepth     int
	// OnPass, when set, is called after every synchronization pass.
	OnPass func(SyncStats, error)
}

func (o *WatchOptions) withDefaults() {
	if o.Mode == "" {
		o.Mode = WatchAuto
	}
	if o.Debounce <= 0 {
		o.Debounce = 200 * time.Millisecond
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = storage.DefaultMaxDepth
	}
}

// Watch keeps the index in sync with the article tree until ctx is
// cancelled. It opens or creates the index, runs one pass to catch up, then
// reruns a full pass after every burst of Markdown changes. In auto mode it
// falls back to polling when file notifications are unavailable.
//
// A failed pass is logged and retried on the next trigger.
func Watch(ctx context.Context, cfg *Configuration, store storage.Provider, opts WatchOptions, logger *slog.Logger) error {
	opts.withDefaults()

	idx, err := Bootstrap(cfg, logger)
	if err != nil {
		return err
	}

	pass := func() {
		stats, err := Sync(idx, store, logger)
		if err != nil {
			logger.Error("watcher: sync failed", slog.String("error", err.Error()))
		}
		if opts.OnPass != nil {
			opts.OnPass(stats, err)
		}
	}
	pass()

	if opts.Mode == WatchPoll {
		return poll(ctx, opts.PollInterval, pass, logger)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		if opts.Mode == WatchNotify {
			return fmt.Errorf("index: watcher: %w", err)
		}
		logger.Warn("watcher: notifications unavailable, polling instead", slog.String("error", err.Error()))
		return poll(ctx, opts.PollInterval, pass, logger)
	}
	defer w.Close()

	t := &tree{w: w, root: cfg.Root, folder: cfg.Folder, maxDepth: opts.MaxDepth, watched: map[string]struct{}{}, logger: logger}
	if err := t.addDirsRecursive(cfg.Root); err != nil {
		if opts.Mode == WatchNotify {
			return fmt.Errorf("index: watch %s: %w", cfg.Root, err)
		}
		// Typically the inotify watch limit (ENOSPC).
		logger.Warn("watcher: registering directories failed, polling instead",
			slog.String("root", cfg.Root),
			slog.String("error", err.Error()))
		_ = w.Close()
		return poll(ctx, opts.PollInterval, pass, logger)
	}

	logger.Info("watcher: started", slog.String("root", cfg.Root), slog.Int("dirs", len(t.watched)))

	// debounce coalesces bursts (editor saves, git pulls) into one pass.
	var debounce *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(opts.Debounce)
			debounceCh = debounce.C
		} else {
			debounce.Reset(opts.Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			debounce, debounceCh = nil, nil
			pass()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if t.relevant(ev) {
				logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func poll(ctx context.Context, interval time.Duration, pass func(), logger *slog.Logger) error {
	logger.Info("watcher: polling", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil
		case <-ticker.C:
			pass()
		}
	}
}

// addWatch registers one directory with the notifier.
var addWatch = func(w *fsnotify.Watcher, dir string) error { return w.Add(dir) }

// tree tracks the directories registered with the notifier.
type tree struct {
	w        *fsnotify.Watcher
	root     string
	folder   string
	maxDepth int
	watched  map[string]struct{}
	logger   *slog.Logger
}

func (t *tree) hidden(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if storage.Ignored(seg) || seg == t.folder {
			return true
		}
	}
	return false
}

func (t *tree) depth(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// relevant reports whether ev can change the scanned article set. New
// directories are registered on the way.
func (t *tree) relevant(ev fsnotify.Event) bool {
	rel, err := filepath.Rel(t.root, ev.Name)
	if err != nil || t.hidden(rel) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := t.addDirsRecursive(ev.Name); addErr != nil {
				t.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", addErr.Error()))
			}
			return true
		}
	}

	if _, ok := t.watched[ev.Name]; ok && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
		delete(t.watched, ev.Name)
		return true
	}

	return strings.HasSuffix(ev.Name, articlepath.Extension)
}

// addDirsRecursive registers dir and its visible subdirectories up to the
// depth bound.
func (t *tree) addDirsRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(t.root, path)
		if relErr != nil {
			return filepath.SkipDir
		}
		if (rel != "." && t.hidden(rel)) || t.depth(rel) > t.maxDepth {
			return filepath.SkipDir
		}
		if err := addWatch(t.w, path); err != nil {
			return err
		}
		t.watched[path] = struct{}{}
		return nil
	})
}
