// Package index keeps a bleve full-text index consistent with the article
// tree and answers search queries against it.
//
// The index lives in a reserved folder inside the article root and is shared
// between processes: one watcher process writes through a Writer, while any
// number of serving processes open short-lived read-only handles.
package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/blevesearch/bleve/v2"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/storage"
)

// Index is a handle on an on-disk index. It holds no open resources; every
// operation opens and closes the underlying store.
type Index struct {
	cfg *Configuration
	dir string
}

// Exists reports whether anything exists at the reserved index path.
func Exists(cfg *Configuration) bool {
	_, err := os.Stat(cfg.Dir())
	return err == nil
}

// Create builds an empty index. It fails with apperr.ErrAlreadyExists when
// the reserved path is already taken.
func Create(cfg *Configuration) (*Index, error) {
	dir := cfg.Dir()
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("index: create %s: %w", dir, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("index: create %s: %w", dir, err)
	}

	bidx, err := bleve.New(dir, newMapping())
	if err != nil {
		return nil, fmt.Errorf("index: create %s: %w", dir, err)
	}
	if err := bidx.Close(); err != nil {
		return nil, fmt.Errorf("index: close after create: %w", err)
	}
	return &Index{cfg: cfg, dir: dir}, nil
}

// Open returns the index at cfg.Dir(). It reports false when no index has
// been built yet, or when the folder exists but cannot be opened; the latter
// is logged and the folder is left untouched. An index that is only busy
// with another handle's commit is returned as usable.
func Open(cfg *Configuration, logger *slog.Logger) (*Index, bool) {
	dir := cfg.Dir()
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("index: not built yet", slog.String("path", dir))
		} else {
			logger.Warn("index: stat failed", slog.String("path", dir), slog.String("error", err.Error()))
		}
		return nil, false
	}

	idx := &Index{cfg: cfg, dir: dir}
	bidx, err := idx.openReader()
	if isLockTimeout(err) {
		logger.Info("index: busy, a commit is in progress", slog.String("path", dir))
		return idx, true
	}
	if err != nil {
		logger.Warn("index: open failed, leaving it in place",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return nil, false
	}
	_ = bidx.Close()
	return idx, true
}

// Bootstrap opens the index, creating it when none exists. An index folder
// that exists but cannot be opened is reported as apperr.ErrIndexUnavailable
// and never replaced; use Rebuild for that.
func Bootstrap(cfg *Configuration, logger *slog.Logger) (*Index, error) {
	if idx, ok := Open(cfg, logger); ok {
		return idx, nil
	}
	if Exists(cfg) {
		return nil, fmt.Errorf("index: %s cannot be opened, rebuild it explicitly: %w", cfg.Dir(), apperr.ErrIndexUnavailable)
	}
	logger.Info("index: creating", slog.String("path", cfg.Dir()))
	return Create(cfg)
}

// Rebuild deletes the index folder, creates a fresh index and runs a full
// synchronization pass. It is the only operation that removes an index.
func Rebuild(cfg *Configuration, store storage.Provider, logger *slog.Logger) (*Index, SyncStats, error) {
	if err := os.RemoveAll(cfg.Dir()); err != nil {
		return nil, SyncStats{}, fmt.Errorf("index: remove %s: %w", cfg.Dir(), err)
	}
	idx, err := Create(cfg)
	if err != nil {
		return nil, SyncStats{}, err
	}
	stats, err := Sync(idx, store, logger)
	return idx, stats, err
}

// Config returns the configuration the index was opened with.
func (i *Index) Config() *Configuration { return i.cfg }

func (i *Index) openReader() (bleve.Index, error) {
	return bleve.OpenUsing(i.dir, map[string]interface{}{
		"read_only":    true,
		"bolt_timeout": i.cfg.LockTimeout.String(),
	})
}

// Documents returns the stored modified time of every indexed path.
func (i *Index) Documents() (map[string]float64, error) {
	bidx, err := i.openReader()
	if err != nil {
		return nil, fmt.Errorf("index: open reader: %w: %v", apperr.ErrIndexUnavailable, err)
	}
	defer bidx.Close()
	return storedDocuments(bidx)
}

func storedDocuments(bidx bleve.Index) (map[string]float64, error) {
	count, err := bidx.DocCount()
	if err != nil {
		return nil, fmt.Errorf("index: doc count: %w", err)
	}
	out := make(map[string]float64, count)
	if count == 0 {
		return out, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	req.Fields = []string{fieldModifiedTime}
	res, err := bidx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("index: snapshot: %w", err)
	}
	for _, hit := range res.Hits {
		mt, _ := hit.Fields[fieldModifiedTime].(float64)
		out[hit.ID] = mt
	}
	return out, nil
}
