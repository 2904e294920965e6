// Package diff renders unified diffs between two revisions of an article.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/storage"
)

// DefaultFileMode is reported in the header when the article file is gone.
const DefaultFileMode = 0o100644

// ContextLines is the number of unchanged lines around each hunk.
const ContextLines = 3

// RevisionReader resolves a single revision with its content.
type RevisionReader interface {
	GetRevision(p models.ArticlePath, id string) (*models.Revision, error)
}

// Engine produces git-style diffs of article revisions.
type Engine struct {
	revisions RevisionReader
	store     storage.Provider
}

// New returns an Engine reading revisions from revisions and file modes from store.
func New(revisions RevisionReader, store storage.Provider) *Engine {
	return &Engine{revisions: revisions, store: store}
}

// Diff returns the HTML-escaped unified diff of p from revision a to b,
// preceded by a two-line git header. Identical revisions yield the header
// alone. A missing revision is reported as apperr.ErrNotFound by the reader.
func (e *Engine) Diff(p models.ArticlePath, a, b string) (string, error) {
	revA, err := e.revisions.GetRevision(p, a)
	if err != nil {
		return "", err
	}
	revB, err := e.revisions.GetRevision(p, b)
	if err != nil {
		return "", err
	}

	rel := articlepath.RelativeFilePath(p)
	body, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(revA.Content),
		B:        difflib.SplitLines(revB.Content),
		FromFile: "a/" + rel,
		ToFile:   "b/" + rel,
		Context:  ContextLines,
	})
	if err != nil {
		return "", fmt.Errorf("diff: %s: %w", rel, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", rel, rel)
	fmt.Fprintf(&sb, "index %s..%s %o\n", revA.ShortID(), revB.ShortID(), e.fileMode(rel))
	sb.WriteString(body)
	return Escape(sb.String()), nil
}

func (e *Engine) fileMode(rel string) uint32 {
	info, err := e.store.Stat(rel)
	if err != nil {
		return DefaultFileMode
	}
	return 0o100000 | uint32(info.Mode().Perm())
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&apos;",
	">", "&gt;",
	"<", "&lt;",
)

// Escape replaces the HTML-significant characters of s with entities.
func Escape(s string) string {
	return escaper.Replace(s)
}
