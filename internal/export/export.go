package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/storage"
)

// RevisionLister is the subset of the history reader the export needs.
type RevisionLister interface {
	ListRevisions(p models.ArticlePath) ([]models.Revision, error)
}

// ArticleID returns the stable id of an article: a name-based (v5) UUID of
// its logical path, so repeated exports agree.
func ArticleID(p models.ArticlePath) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.String())).String()
}

// Export reads every visible article and replaces the contents of db with
// them. The created time is the oldest commit touching the article when
// history is available, the modification time otherwise. Unreadable files
// are logged and skipped.
func Export(ctx context.Context, db *DB, store storage.Provider, history RevisionLister, logger *slog.Logger) (int, error) {
	files, err := store.ListArticles()
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	articles := make([]Article, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		p := articlepath.FromRelativeFilePath(f, store.Root())
		rel := articlepath.RelativeFilePath(p)

		info, err := store.Stat(rel)
		if err != nil {
			logger.Warn("export: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}
		data, err := store.Read(rel)
		if err != nil {
			logger.Warn("export: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			continue
		}

		created := info.ModTime()
		if history != nil {
			revs, err := history.ListRevisions(p)
			if err != nil {
				logger.Debug("export: no history", slog.String("path", rel), slog.String("error", err.Error()))
			} else if len(revs) > 0 {
				created = revs[len(revs)-1].Committed
			}
		}

		articles = append(articles, Article{
			ID:       ArticleID(p),
			URI:      articlepath.Route(p),
			Title:    p.Title,
			Content:  string(data),
			Created:  created,
			Modified: info.ModTime(),
		})
	}

	if err := db.Replace(articles); err != nil {
		return 0, err
	}
	logger.Info("export: complete", slog.Int("articles", len(articles)))
	return len(articles), nil
}
