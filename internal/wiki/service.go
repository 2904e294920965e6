// Package wiki is the application service shared by the HTTP, MCP and CLI
// collaborators. It combines the article tree, the search index, the
// revision history and the renderer into read models.
package wiki

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/diff"
	"github.com/starford/bock/internal/index"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/render"
	"github.com/starford/bock/internal/storage"
)

// ReadmeName is the file rendered on folder pages.
const ReadmeName = "README.md"

// DefaultRecent is the number of articles returned by Recent when n is not positive.
const DefaultRecent = 10

// History is the revision store the service reads from.
type History interface {
	ListRevisions(p models.ArticlePath) ([]models.Revision, error)
	GetRevision(p models.ArticlePath, id string) (*models.Revision, error)
	Uncommitted(p models.ArticlePath) (bool, error)
	Pull(ctx context.Context) []error
}

// Renderer turns Markdown into HTML and a table of contents.
type Renderer interface {
	Render(source []byte) (string, error)
	Outline(source []byte) []render.Heading
}

// Article is the full read model of one article.
type Article struct {
	Path        string                  `json:"path"`
	Route       string                  `json:"route"`
	Title       string                  `json:"title"`
	Source      string                  `json:"source"`
	Checksum    string                  `json:"checksum"`
	HTML        string                  `json:"html"`
	Outline     []render.Heading        `json:"outline"`
	Hierarchy   []models.HierarchyEntry `json:"hierarchy"`
	Size        int64                   `json:"size"`
	Modified    time.Time               `json:"modified"`
	Revisions   []models.Revision       `json:"revisions"`
	Uncommitted bool                    `json:"uncommitted"`
}

// Entry is a named link to a folder or article.
type Entry struct {
	Name  string `json:"name"`
	Route string `json:"route"`
}

// Folder is the read model of a namespace.
type Folder struct {
	Path      string                  `json:"path"`
	Route     string                  `json:"route"`
	Title     string                  `json:"title"`
	Hierarchy []models.HierarchyEntry `json:"hierarchy"`
	Folders   []Entry                 `json:"folders"`
	Articles  []Entry                 `json:"articles"`
	Readme    string                  `json:"readme,omitempty"`
}

// RevisionView is one historical version of an article, rendered.
type RevisionView struct {
	models.Revision
	Path  string `json:"path"`
	Route string `json:"route"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Service coordinates storage, index, history and rendering.
type Service struct {
	store    storage.Provider
	history  History
	diff     *diff.Engine
	render   Renderer
	indexCfg *index.Configuration
	logger   *slog.Logger

	mu     sync.Mutex
	idx    *index.Index
	warned bool
}

// NewService creates a new wiki service.
func NewService(store storage.Provider, history History, indexCfg *index.Configuration, renderer Renderer, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		history:  history,
		diff:     diff.New(history, store),
		render:   renderer,
		indexCfg: indexCfg,
		logger:   logger,
	}
}

// Article returns the article at p with its rendered HTML, breadcrumb and
// revision list. Files the scan hides are reported as not found.
func (s *Service) Article(_ context.Context, p models.ArticlePath) (*Article, error) {
	rel := articlepath.RelativeFilePath(p)
	if !s.store.Visible(rel) {
		return nil, fmt.Errorf("wiki: article %s: %w", p, apperr.ErrNotFound)
	}
	info, err := s.store.Stat(rel)
	if err != nil || info.IsDir() {
		if err == nil || storage.IsNotExist(err) {
			return nil, fmt.Errorf("wiki: article %s: %w", p, apperr.ErrNotFound)
		}
		return nil, err
	}
	data, err := s.store.Read(rel)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, fmt.Errorf("wiki: article %s: %w", p, apperr.ErrNotFound)
		}
		return nil, err
	}
	html, err := s.render.Render(data)
	if err != nil {
		return nil, err
	}
	revisions, err := s.history.ListRevisions(p)
	if err != nil {
		return nil, err
	}
	uncommitted, err := s.history.Uncommitted(p)
	if err != nil {
		s.logger.Warn("wiki: status failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
	return &Article{
		Path:        p.String(),
		Route:       articlepath.Route(p),
		Title:       p.Title,
		Source:      string(data),
		Checksum:    checksum(data),
		HTML:        html,
		Outline:     s.render.Outline(data),
		Hierarchy:   s.store.Hierarchy(p.String()),
		Size:        info.Size(),
		Modified:    info.ModTime(),
		Revisions:   revisions,
		Uncommitted: uncommitted,
	}, nil
}

// Folder lists the namespace at logical, rendering its README.md when present.
func (s *Service) Folder(_ context.Context, logical string) (*Folder, error) {
	listing, err := s.store.ListFolder(logical)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, fmt.Errorf("wiki: folder %q: %w", logical, apperr.ErrNotFound)
		}
		return nil, err
	}

	f := &Folder{
		Path:      listing.Path,
		Route:     articlepath.ToRoute(listing.Path),
		Title:     articlepath.Title(listing.Path),
		Hierarchy: s.store.Hierarchy(listing.Path),
		Folders:   lo.Map(listing.Folders, toEntry),
		Articles:  lo.Map(listing.Articles, toEntry),
	}
	if data, err := s.store.Read(path.Join(listing.Path, ReadmeName)); err == nil {
		readme, err := s.render.Render(data)
		if err != nil {
			return nil, err
		}
		f.Readme = readme
	}
	return f, nil
}

// checksum returns the hex SHA-256 digest of data.
func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func toEntry(logical string, _ int) Entry {
	return Entry{Name: articlepath.Title(logical), Route: articlepath.ToRoute(logical)}
}

// Search runs term against the index. The index is opened on first use;
// while it is unavailable every call fails with apperr.ErrIndexUnavailable
// and only the first failure is logged.
func (s *Service) Search(_ context.Context, term string) (*index.SearchResults, error) {
	if _, err := s.indexCfg.CheckTerm(term); err != nil {
		return nil, err
	}
	idx, err := s.index()
	if err != nil {
		return nil, err
	}
	return idx.Search(term)
}

func (s *Service) index() (*index.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx != nil {
		return s.idx, nil
	}
	logger := s.logger
	if s.warned {
		logger = slog.New(slog.DiscardHandler)
	}
	idx, ok := index.Open(s.indexCfg, logger)
	if !ok {
		s.warned = true
		return nil, fmt.Errorf("wiki: search: %w", apperr.ErrIndexUnavailable)
	}
	s.idx = idx
	return idx, nil
}

// Revisions lists the commits that touched p, newest first. An article that
// neither exists on disk nor has history is reported as not found.
func (s *Service) Revisions(_ context.Context, p models.ArticlePath) ([]models.Revision, error) {
	revisions, err := s.history.ListRevisions(p)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		if _, err := s.store.Stat(articlepath.RelativeFilePath(p)); storage.IsNotExist(err) {
			return nil, fmt.Errorf("wiki: revisions of %s: %w", p, apperr.ErrNotFound)
		}
	}
	return revisions, nil
}

// Revision returns the content of p at revision id, rendered.
func (s *Service) Revision(_ context.Context, p models.ArticlePath, id string) (*RevisionView, error) {
	rev, err := s.history.GetRevision(p, id)
	if err != nil {
		return nil, err
	}
	html, err := s.render.Render([]byte(rev.Content))
	if err != nil {
		return nil, err
	}
	return &RevisionView{
		Revision: *rev,
		Path:     p.String(),
		Route:    articlepath.Route(p),
		Title:    p.Title,
		HTML:     html,
	}, nil
}

// Diff returns the escaped unified diff of p between revisions a and b.
func (s *Service) Diff(_ context.Context, p models.ArticlePath, a, b string) (string, error) {
	return s.diff.Diff(p, a, b)
}

// Refresh pulls the default remote. The returned slice holds every failure
// and is empty on success.
func (s *Service) Refresh(ctx context.Context) []error {
	errs := s.history.Pull(ctx)
	for _, err := range errs {
		s.logger.Error("wiki: refresh failed", slog.String("error", err.Error()))
	}
	if errs == nil {
		errs = []error{}
	}
	return errs
}

// Articles returns a summary of every article, sorted by path.
func (s *Service) Articles(_ context.Context) ([]models.ArticleSummary, error) {
	files, err := s.store.ListArticles()
	if err != nil {
		return nil, err
	}
	out := make([]models.ArticleSummary, 0, len(files))
	for _, f := range files {
		p := articlepath.FromRelativeFilePath(f, s.store.Root())
		info, err := s.store.Stat(articlepath.RelativeFilePath(p))
		if err != nil {
			// Vanished since the scan.
			continue
		}
		out = append(out, models.ArticleSummary{
			Path:     p.String(),
			Route:    articlepath.Route(p),
			Title:    p.Title,
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	return out, nil
}

// Recent returns the n most recently modified articles.
func (s *Service) Recent(ctx context.Context, n int) ([]models.ArticleSummary, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	all, err := s.Articles(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Modified.After(all[j].Modified) })
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Random returns one article chosen uniformly.
func (s *Service) Random(ctx context.Context) (*models.ArticleSummary, error) {
	all, err := s.Articles(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("wiki: random: %w", apperr.ErrNotFound)
	}
	pick := lo.Sample(all)
	return &pick, nil
}
