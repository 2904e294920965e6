// Package history reads article revisions from the git repository that holds
// the article root.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/storage"
)

// MinIDLength is the shortest revision id prefix accepted by GetRevision.
const MinIDLength = 4

// Repository reads the commit history of articles under root.
type Repository struct {
	root   string
	repo   *git.Repository
	store  storage.Provider
	logger *slog.Logger
}

// Open validates root and opens the repository at it. The returned error
// names the cause: ErrRootNotAbsolute, ErrRootNotFound or ErrNotRepository.
func Open(root string, store storage.Provider, logger *slog.Logger) (*Repository, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("history: %s: %w", root, apperr.ErrRootNotAbsolute)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("history: %s: %w", root, apperr.ErrRootNotFound)
	}
	repo, err := git.PlainOpen(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("history: %s: %w", root, apperr.ErrNotRepository)
		}
		return nil, fmt.Errorf("history: open %s: %w", root, err)
	}
	return &Repository{root: root, repo: repo, store: store, logger: logger}, nil
}

// Root returns the repository root.
func (r *Repository) Root() string { return r.root }

// ListRevisions returns the commits that touched p, newest first. A
// repository without commits yields an empty list.
func (r *Repository) ListRevisions(p models.ArticlePath) ([]models.Revision, error) {
	out := []models.Revision{}
	now := time.Now()
	err := r.forEachCommit(p, func(c *object.Commit) error {
		out = append(out, revisionOf(c, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRevision returns the revision of p identified by id (a full commit id or
// a prefix of at least MinIDLength characters) with its content resolved.
// When the commit tree lacks the blob, the current on-disk text is returned
// and FromWorkingTree is set.
func (r *Repository) GetRevision(p models.ArticlePath, id string) (*models.Revision, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) < MinIDLength {
		return nil, fmt.Errorf("history: revision %q of %s: %w", id, p, apperr.ErrNotFound)
	}

	var found *object.Commit
	err := r.forEachCommit(p, func(c *object.Commit) error {
		if strings.HasPrefix(c.Hash.String(), id) {
			found = c
			return errStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("history: revision %q of %s: %w", id, p, apperr.ErrNotFound)
	}

	rev := revisionOf(found, time.Now())
	rel := articlepath.RelativeFilePath(p)
	content, ok, err := blobContent(found, rel)
	if err != nil {
		return nil, fmt.Errorf("history: read %s at %s: %w", rel, rev.ShortID(), err)
	}
	if !ok {
		data, readErr := r.store.Read(rel)
		if readErr != nil {
			if storage.IsNotExist(readErr) {
				return nil, fmt.Errorf("history: %s at %s: %w", rel, rev.ShortID(), apperr.ErrNotFound)
			}
			return nil, readErr
		}
		r.logger.Debug("history: blob missing, using working tree",
			slog.String("path", rel),
			slog.String("revision", rev.ShortID()))
		content = string(data)
		rev.FromWorkingTree = true
	}
	rev.Content = clean(content)
	return &rev, nil
}

// Uncommitted reports whether p differs from HEAD in the worktree or index.
// Untracked articles count as uncommitted.
func (r *Repository) Uncommitted(p models.ArticlePath) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("history: worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("history: status: %w", err)
	}
	fs, ok := st[articlepath.RelativeFilePath(p)]
	if !ok {
		return false, nil
	}
	return fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified, nil
}

// Pull fetches and merges the default remote into the current branch. Every
// failure is returned; an up-to-date branch is not a failure.
func (r *Repository) Pull(ctx context.Context) []error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return []error{fmt.Errorf("history: worktree: %w", err)}
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return []error{fmt.Errorf("history: pull: %w", err)}
	}
	r.logger.Info("history: pulled", slog.String("root", r.root))
	return nil
}

var errStop = errors.New("stop")

func (r *Repository) forEachCommit(p models.ArticlePath, fn func(*object.Commit) error) error {
	rel := articlepath.RelativeFilePath(p)
	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return fmt.Errorf("history: log %s: %w", rel, err)
	}
	defer iter.Close()

	err = iter.ForEach(fn)
	if err != nil && !errors.Is(err, errStop) {
		return fmt.Errorf("history: log %s: %w", rel, err)
	}
	return nil
}

func revisionOf(c *object.Commit, now time.Time) models.Revision {
	return models.Revision{
		ID:                 c.Hash.String(),
		Message:            strings.TrimSpace(c.Message),
		Author:             c.Author.Name,
		Email:              c.Author.Email,
		Committed:          c.Committer.When,
		CommittedHumanized: humanize.RelTime(c.Committer.When, now, "ago", "from now"),
	}
}

// blobContent walks the commit tree one segment at a time and returns the
// text of the regular file at rel.
func blobContent(c *object.Commit, rel string) (string, bool, error) {
	tree, err := c.Tree()
	if err != nil {
		return "", false, err
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		tree, err = tree.Tree(seg)
		if err != nil {
			if errors.Is(err, object.ErrDirectoryNotFound) {
				return "", false, nil
			}
			return "", false, err
		}
	}
	name := segments[len(segments)-1]
	for _, e := range tree.Entries {
		if e.Name != name || !e.Mode.IsFile() {
			continue
		}
		f, err := tree.TreeEntryFile(&e)
		if err != nil {
			return "", false, err
		}
		text, err := f.Contents()
		if err != nil {
			return "", false, err
		}
		return text, true, nil
	}
	return "", false, nil
}

func clean(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return strings.ReplaceAll(s, "\u00a0", "")
}
