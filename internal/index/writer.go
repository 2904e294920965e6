package index

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/gofrs/flock"

	"github.com/starford/bock/internal/apperr"
)

const writeLockName = "write.lock"

// mutation is one queued change; a nil doc deletes path.
type mutation struct {
	path string
	doc  *Document
}

// Writer is the only way to mutate the index. Mutations are queued in memory
// and become visible together on Commit. At most one Writer may be open per
// index across all processes.
//
// The store itself is only opened for writing inside Commit, so readers keep
// seeing the last committed state while a pass prepares its batch.
type Writer struct {
	idx     *Index
	pending []mutation
	lock    *flock.Flock
	closed  bool
}

// Writer acquires the cross-process write lock. It fails fast with
// apperr.ErrWriterBusy when another writer holds the lock.
func (i *Index) Writer() (*Writer, error) {
	lock := flock.New(filepath.Join(i.dir, writeLockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("index: acquire write lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("index: %s: %w", i.dir, apperr.ErrWriterBusy)
	}
	return &Writer{idx: i, lock: lock}, nil
}

// Documents snapshots the stored (path, modified time) pairs as of the
// last commit.
func (w *Writer) Documents() (map[string]float64, error) {
	return w.idx.Documents()
}

// Upsert queues doc, replacing any document with the same path.
func (w *Writer) Upsert(doc Document) error {
	if w.closed {
		return errors.New("index: upsert on closed writer")
	}
	if doc.Path == "" {
		return errors.New("index: queue: empty path")
	}
	w.pending = append(w.pending, mutation{path: doc.Path, doc: &doc})
	return nil
}

// Delete queues the removal of path. Deleting a missing path is a no-op.
func (w *Writer) Delete(path string) {
	if w.closed {
		return
	}
	w.pending = append(w.pending, mutation{path: path})
}

// Pending returns the number of queued mutations.
func (w *Writer) Pending() int {
	return len(w.pending)
}

// Commit applies every queued mutation atomically and releases the writer.
// Readers are locked out only while the batch is written.
func (w *Writer) Commit() error {
	if w.closed {
		return errors.New("index: commit on closed writer")
	}
	var err error
	if len(w.pending) > 0 {
		err = w.apply()
	}
	if cErr := w.Close(); cErr != nil && err == nil {
		err = cErr
	}
	return err
}

func (w *Writer) apply() error {
	bidx, err := bleve.OpenUsing(w.idx.dir, map[string]interface{}{
		"bolt_timeout": w.idx.cfg.LockTimeout.String(),
	})
	if err != nil {
		return fmt.Errorf("index: open writer: %w: %v", apperr.ErrIndexUnavailable, err)
	}

	batch := bidx.NewBatch()
	for _, m := range w.pending {
		if m.doc == nil {
			batch.Delete(m.path)
			continue
		}
		if iErr := batch.Index(m.path, m.doc.fields()); iErr != nil {
			_ = bidx.Close()
			return fmt.Errorf("index: queue %s: %w", m.path, iErr)
		}
	}

	if bErr := bidx.Batch(batch); bErr != nil {
		err = fmt.Errorf("index: commit batch: %w", bErr)
	}
	if cErr := bidx.Close(); cErr != nil && err == nil {
		err = fmt.Errorf("index: close writer: %w", cErr)
	}
	return err
}

// Close releases the writer, discarding anything not committed. It is safe
// to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.pending = nil
	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("index: release write lock: %w", err)
	}
	return nil
}

// isLockTimeout reports whether err comes from waiting on a store lock held
// by another handle, as opposed to a damaged index.
func isLockTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "timeout")
}
