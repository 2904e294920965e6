package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bock/internal/wiki"
)

// Options configures the optional parts of the API.
type Options struct {
	// RefreshKey is compared against the Authorization header of refresh
	// requests.
	RefreshKey string
	// GitHubSecret verifies the X-Hub-Signature of refresh requests sent by
	// a GitHub webhook. It takes precedence over RefreshKey.
	GitHubSecret string
}

// NewRouter creates a chi router with all API routes mounted. Refresh is
// disabled unless a key or a webhook secret is configured.
func NewRouter(svc *wiki.Service, opts Options) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/search/{term}", h.Search)

	r.Get("/articles", h.ListArticles)
	r.Get("/articles/recent", h.RecentArticles)
	r.Get("/articles/random", h.RandomArticle)
	r.Get("/articles/*", h.Articles)

	r.With(RefreshAuthMiddleware(opts.RefreshKey, opts.GitHubSecret)).Post("/refresh", h.Refresh)

	return r
}

// AssetsHandler serves the files of dir under the /assets prefix.
func AssetsHandler(dir string) http.Handler {
	return http.StripPrefix("/assets/", http.FileServer(http.Dir(dir)))
}
