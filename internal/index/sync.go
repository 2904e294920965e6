package index

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/storage"
)

// SyncStats summarizes one synchronization pass.
type SyncStats struct {
	Added    int
	Updated  int
	Removed  int
	Skipped  int
	Duration time.Duration
}

// Mutations returns the number of documents the pass changed.
func (s SyncStats) Mutations() int {
	return s.Added + s.Updated + s.Removed
}

// ModifiedTime converts a file mtime to the stored representation.
func ModifiedTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Sync reconciles the index with the current article tree in one batch:
//   - indexed paths that are malformed, no longer scanned or gone from disk are deleted
//   - indexed paths whose file is newer than the stored time are reindexed
//   - scanned paths missing from the index are added
//
// Files that cannot be read are logged and skipped; they are picked up by a
// later pass. A failure to commit aborts the pass.
func Sync(idx *Index, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	start := time.Now()
	var stats SyncStats

	files, err := store.ListArticles()
	if err != nil {
		return stats, fmt.Errorf("index: sync: %w", err)
	}
	scanned := make(map[string]struct{}, len(files))
	for _, f := range files {
		scanned[articlepath.FromRelativeFilePath(f, store.Root()).String()] = struct{}{}
	}

	w, err := idx.Writer()
	if err != nil {
		return stats, err
	}
	defer w.Close()

	indexed, err := w.Documents()
	if err != nil {
		return stats, err
	}

	reindex := make(map[string]struct{})
	for path, stored := range indexed {
		if strings.HasPrefix(path, "/") {
			w.Delete(path)
			stats.Removed++
			logger.Warn("sync: removed malformed path", slog.String("path", path))
			continue
		}
		_, present := scanned[path]
		info, statErr := store.Stat(path + articlepath.Extension)
		if !present || storage.IsNotExist(statErr) {
			w.Delete(path)
			stats.Removed++
			logger.Debug("sync: removed", slog.String("path", path))
			continue
		}
		if statErr != nil {
			logger.Warn("sync: stat failed", slog.String("path", path), slog.String("error", statErr.Error()))
			continue
		}
		if ModifiedTime(info.ModTime()) > stored {
			w.Delete(path)
			reindex[path] = struct{}{}
		}
	}

	pending := lo.Filter(lo.Keys(scanned), func(p string, _ int) bool {
		_, known := indexed[p]
		return !known
	})
	pending = append(pending, lo.Keys(reindex)...)
	sort.Strings(pending)

	for _, path := range pending {
		doc, err := readDocument(store, path)
		if err != nil {
			stats.Skipped++
			logger.Warn("sync: read failed, skipping", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if err := w.Upsert(doc); err != nil {
			stats.Skipped++
			logger.Warn("sync: index failed, skipping", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if _, ok := reindex[path]; ok {
			stats.Updated++
			logger.Debug("sync: updated", slog.String("path", path))
		} else {
			stats.Added++
			logger.Debug("sync: added", slog.String("path", path))
		}
	}

	logger.Debug("sync: committing", slog.Int("mutations", w.Pending()))
	if err := w.Commit(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	logger.Info("sync: pass complete",
		slog.Int("added", stats.Added),
		slog.Int("updated", stats.Updated),
		slog.Int("removed", stats.Removed),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// readDocument captures the mtime before the content, so a write racing the
// read leaves a stored time older than the file and is picked up next pass.
func readDocument(store storage.Provider, path string) (Document, error) {
	rel := path + articlepath.Extension
	info, err := store.Stat(rel)
	if err != nil {
		return Document{}, err
	}
	data, err := store.Read(rel)
	if err != nil {
		return Document{}, err
	}
	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "\uFFFD")
	}
	return Document{
		Path:         path,
		Name:         articlepath.Title(path),
		Content:      content,
		ModifiedTime: ModifiedTime(info.ModTime()),
	}, nil
}
