package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/wiki"
)

// Route suffixes handled under /articles/*.
const (
	revisionsSuffix = "/revisions"
	compareSuffix   = "/compare"
)

// Handler holds API route handlers.
type Handler struct {
	svc *wiki.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *wiki.Service) *Handler {
	return &Handler{svc: svc}
}

// articleRoute extracts the route from the URL (everything after
// /api/articles/). Supports encoded slashes.
func articleRoute(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrIndexUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index unavailable"))
	default:
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Search handles GET /api/search/{term}.
//
//	@Summary		Full-text search across articles
//	@Tags			search
//	@Produce		json
//	@Param			term	path		string	true	"Search term, at least 3 characters"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Router			/search/{term} [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	term, err := url.PathUnescape(chi.URLParam(r, "term"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid term"))
		return
	}
	res, err := h.svc.Search(r.Context(), term)
	if err != nil {
		writeError(w, err, "search failed", slog.String("query", term))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List every article
//	@Tags			articles
//	@Produce		json
//	@Success		200	{array}	ArticleSummary
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Articles(r.Context())
	if err != nil {
		writeError(w, err, "list articles failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// RecentArticles handles GET /api/articles/recent.
//
//	@Summary		List the most recently modified articles
//	@Tags			articles
//	@Produce		json
//	@Param			n	query	int	false	"Number of articles"
//	@Success		200	{array}	ArticleSummary
//	@Router			/articles/recent [get]
func (h *Handler) RecentArticles(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	items, err := h.svc.Recent(r.Context(), n)
	if err != nil {
		writeError(w, err, "recent articles failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// RandomArticle handles GET /api/articles/random.
//
//	@Summary		Pick a random article
//	@Tags			articles
//	@Produce		json
//	@Success		200	{object}	ArticleSummary
//	@Failure		404	{object}	errResponse
//	@Router			/articles/random [get]
func (h *Handler) RandomArticle(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Random(r.Context())
	if err != nil {
		writeError(w, err, "random article failed")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Articles handles GET /api/articles/*. Routes with spaces are redirected to
// their underscore form; the remaining routes dispatch on their suffix.
//
//	@Summary		Read an article, a folder, its revisions or a diff
//	@Tags			articles
//	@Produce		json
//	@Param			route	path		string	true	"Article route"
//	@Success		200		{object}	ArticleDetail
//	@Failure		404		{object}	errResponse
//	@Router			/articles/{route} [get]
func (h *Handler) Articles(w http.ResponseWriter, r *http.Request) {
	route := articleRoute(r)
	if strings.Contains(route, " ") {
		target := "/api/articles/" + articlepath.ToRoute(route)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	switch {
	case strings.HasSuffix(route, revisionsSuffix):
		h.listRevisions(w, r, strings.TrimSuffix(route, revisionsSuffix))
	case strings.Contains(route, revisionsSuffix+"/"):
		i := strings.LastIndex(route, revisionsSuffix+"/")
		h.getRevision(w, r, route[:i], route[i+len(revisionsSuffix)+1:])
	case strings.HasSuffix(route, compareSuffix):
		h.compare(w, r, strings.TrimSuffix(route, compareSuffix))
	default:
		h.getArticle(w, r, route)
	}
}

// getArticle serves an article, falling back to the folder of the same route.
// Articles carry their content checksum as ETag.
func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request, route string) {
	if route != "" {
		a, err := h.svc.Article(r.Context(), articlepath.ParseRoute(route))
		if err == nil {
			etag := `"` + a.Checksum + `"`
			w.Header().Set("ETag", etag)
			if r.Header.Get("If-None-Match") == etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			writeJSON(w, http.StatusOK, a)
			return
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			writeError(w, err, "get article failed", slog.String("route", route))
			return
		}
	}
	f, err := h.svc.Folder(r.Context(), articlepath.FromRoute(route))
	if err != nil {
		writeError(w, err, "get folder failed", slog.String("route", route))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) listRevisions(w http.ResponseWriter, r *http.Request, route string) {
	revs, err := h.svc.Revisions(r.Context(), articlepath.ParseRoute(route))
	if err != nil {
		writeError(w, err, "list revisions failed", slog.String("route", route))
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

func (h *Handler) getRevision(w http.ResponseWriter, r *http.Request, route, id string) {
	rev, err := h.svc.Revision(r.Context(), articlepath.ParseRoute(route), id)
	if err != nil {
		writeError(w, err, "get revision failed", slog.String("route", route), slog.String("revision", id))
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// compare serves the diff between revisions a and b as plain text, or as
// CompareResponse when the client accepts JSON.
func (h *Handler) compare(w http.ResponseWriter, r *http.Request, route string) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'a' and 'b' are required"))
		return
	}
	p := articlepath.ParseRoute(route)
	out, err := h.svc.Diff(r.Context(), p, a, b)
	if err != nil {
		writeError(w, err, "compare failed", slog.String("route", route))
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, CompareResponse{Title: p.String(), Diff: out})
		return
	}
	writeText(w, http.StatusOK, out)
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Pull the article repository from its remote
//	@Tags			refresh
//	@Produce		json
//	@Success		200	{object}	RefreshResponse
//	@Failure		401	{object}	errResponse
//	@Failure		500	{object}	RefreshResponse
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	errs := h.svc.Refresh(r.Context())
	resp := RefreshResponse{Errors: make([]string, 0, len(errs))}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}
	status := http.StatusOK
	if len(resp.Errors) > 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}
