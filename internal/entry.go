// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bock/internal/api"
	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/export"
	"github.com/starford/bock/internal/history"
	"github.com/starford/bock/internal/index"
	"github.com/starford/bock/internal/mcpserver"
	"github.com/starford/bock/internal/render"
	"github.com/starford/bock/internal/storage"
	"github.com/starford/bock/internal/wiki"
)

// shutdownTimeout bounds graceful HTTP shutdown and child process exit.
const shutdownTimeout = 10 * time.Second

// deps holds the components shared by every entry point.
type deps struct {
	cfg      *Config
	logger   *slog.Logger
	store    *storage.FS
	repo     *history.Repository
	indexCfg *index.Configuration
	app      *application
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup builds the logger, the article store and the repository handle.
// Root problems are returned as apperr.ErrRepositoryUnavailable causes.
func setup(app *application, logOut io.Writer) (*deps, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("wiki_path", cfg.Wiki.Path),
		slog.Int("max_depth", cfg.Wiki.MaxDepth),
		slog.String("index_folder", cfg.Index.Folder),
		slog.String("log_level", cfg.App.LogLevel.String()))

	root := cfg.Wiki.Path
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("wiki path %q: %w", root, apperr.ErrRootNotAbsolute)
	}
	root = filepath.Clean(root)

	// Initialize storage.
	store, err := storage.NewFS(root, cfg.Wiki.MaxDepth, cfg.Index.Folder)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w: %v", apperr.ErrRootNotFound, err)
	}

	repo, err := history.Open(root, store, logger)
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		repo:     repo,
		indexCfg: cfg.Index.Configuration(root),
		app:      app,
	}, nil
}

func (rt *deps) service() *wiki.Service {
	return wiki.NewService(rt.store, rt.repo, rt.indexCfg, render.New(), rt.logger)
}

// handleSignals cancels the returned context on SIGINT or SIGTERM.
func handleSignals(ctx context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// newHTTPServer builds the root router: health checks, the API and assets.
func (rt *deps) newHTTPServer(svc *wiki.Service) *http.Server {
	if !rt.cfg.Refresh.Enabled() {
		rt.logger.Info("refresh disabled, no key or github secret configured")
	}
	apiRouter := api.NewRouter(svc, api.Options{
		RefreshKey:   rt.cfg.Refresh.Key,
		GitHubSecret: rt.cfg.Refresh.GitHubSecret,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Article assets.
	r.Handle("/assets/*", api.AssetsHandler(filepath.Join(rt.store.Root(), storage.AssetsFolder)))

	return &http.Server{
		Addr:              rt.cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serve runs the HTTP server until ctx is cancelled.
func (rt *deps) serve(ctx context.Context, httpServer *http.Server) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rt.logger.Info("Starting HTTP server", slog.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		rt.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	return g.Wait()
}

// Run starts the HTTP server. The search index is only read; keeping it
// current is the job of a separate watcher process.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, os.Stdout)
	if err != nil {
		return err
	}

	ctx, cancel := handleSignals(ctx, rt.logger)
	defer cancel()

	if _, ok := index.Open(rt.indexCfg, rt.logger); !ok {
		rt.logger.Warn("Search unavailable until the watcher builds the index",
			slog.String("path", rt.indexCfg.Dir()))
	}

	httpServer := rt.newHTTPServer(rt.service())
	if err := rt.serve(ctx, httpServer); err != nil {
		rt.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	rt.logger.Info("Server stopped successfully")
	return nil
}

// RunWatch keeps the search index in sync with the article tree until
// interrupted.
func RunWatch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, os.Stdout)
	if err != nil {
		return err
	}

	ctx, cancel := handleSignals(ctx, rt.logger)
	defer cancel()

	return index.Watch(ctx, rt.indexCfg, rt.store, index.WatchOptions{
		Mode:         rt.cfg.Watch.Mode,
		Debounce:     rt.cfg.Watch.Debounce,
		PollInterval: rt.cfg.Watch.PollInterval,
		MaxDepth:     rt.cfg.Wiki.MaxDepth,
	}, rt.logger)
}

// RunLocal starts the HTTP server and the watcher as a child process. The
// two share nothing but the index folder. The child is stopped with
// SIGTERM when the server exits; if the child dies the server stops too.
func RunLocal(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if len(app.watcher) == 0 {
		return fmt.Errorf("watcher command is required")
	}
	rt, err := setup(app, os.Stdout)
	if err != nil {
		return err
	}

	ctx, cancel := handleSignals(ctx, rt.logger)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cmd := exec.CommandContext(gCtx, app.watcher[0], app.watcher[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
		cmd.WaitDelay = shutdownTimeout

		rt.logger.Info("Starting watcher process", slog.Any("command", app.watcher))
		err := cmd.Run()
		if gCtx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("exited")
		}
		return fmt.Errorf("watcher process: %w", err)
	})

	g.Go(func() error {
		return rt.serve(gCtx, rt.newHTTPServer(rt.service()))
	})

	if err := g.Wait(); err != nil {
		rt.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	rt.logger.Info("Server stopped successfully")
	return nil
}

// RunIndex runs one synchronization pass, creating the index if needed.
// With rebuild set, an existing index is deleted first.
func RunIndex(ctx context.Context, rebuild bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, os.Stdout)
	if err != nil {
		return err
	}

	var stats index.SyncStats
	if rebuild {
		rt.logger.Info("Rebuilding index", slog.String("path", rt.indexCfg.Dir()))
		_, stats, err = index.Rebuild(rt.indexCfg, rt.store, rt.logger)
	} else {
		var idx *index.Index
		idx, err = index.Bootstrap(rt.indexCfg, rt.logger)
		if err == nil {
			stats, err = index.Sync(idx, rt.store, rt.logger)
		}
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(app.output, "added %d, updated %d, removed %d, skipped %d in %s\n",
		stats.Added, stats.Updated, stats.Removed, stats.Skipped, stats.Duration.Round(time.Millisecond))
	return err
}

// RunSearch prints the results of one query as JSON. With fromExport set
// the exported SQLite database is queried instead of the search index.
func RunSearch(ctx context.Context, term string, fromExport bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, os.Stderr)
	if err != nil {
		return err
	}

	var res any
	if fromExport {
		if term, err = rt.indexCfg.CheckTerm(term); err != nil {
			return err
		}
		db, err := export.Open(rt.cfg.Export.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if res, err = db.Search(term, rt.cfg.Index.MaxResults); err != nil {
			return err
		}
	} else {
		if res, err = rt.service().Search(ctx, term); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// RunExport writes every article to the SQLite database at export.path.
func RunExport(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, os.Stdout)
	if err != nil {
		return err
	}

	db, err := export.Open(rt.cfg.Export.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := export.Export(ctx, db, rt.store, rt.repo, rt.logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.output, "exported %d articles to %s\n", n, rt.cfg.Export.Path)
	return err
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(app, os.Stderr)
	if err != nil {
		return err
	}

	srv := mcpserver.New(rt.service(), app.version)
	rt.logger.Info("Starting MCP server on stdio")
	return srv.ServeStdio()
}
