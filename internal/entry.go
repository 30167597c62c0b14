// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/library"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/promptservice"
	"github.com/starford/ansuz/internal/sse"
)

// newLogger builds the application logger. The pretty format uses a tinted
// handler on stderr; JSON goes to stdout.
func newLogger(cfg *Config) *slog.Logger {
	if cfg.App.LogFormat == LogFormatPretty {
		return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      cfg.App.LogLevel,
			TimeFormat: time.Kitchen,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Run starts the HTTP server, the prompt cache, and its watcher with the
// given options, and blocks until ctx is cancelled or a shutdown signal
// arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the prompt directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	// Search index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Metadata cache; watcher-driven changes flow into the search index
	// and the event feed.
	c := cache.New(cfg.Library.Path, logger, func(kind, name string, data []byte) {
		switch kind {
		case "deleted":
			if err := db.DeletePrompt(name); err != nil {
				logger.Warn("index delete failed", slog.String("name", name), slog.String("error", err.Error()))
			}
		default:
			if err := index.IndexPrompt(db, name, data); err != nil {
				logger.Warn("index update failed", slog.String("name", name), slog.String("error", err.Error()))
			}
		}
		broker.PublishPromptEvent(kind, name)
	})
	defer c.Shutdown()

	// Eager bootstrap: the server pays the scan cost at startup rather
	// than on the first list call. Failures here degrade to lazy
	// bootstrap instead of aborting startup.
	if err := c.Initialize(); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}
	if err := c.StartWatching(); err != nil {
		logger.Warn("watcher start failed", slog.String("error", err.Error()))
	}
	if err := index.Sync(db, cfg.Library.Path, logger); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	lib := library.New(cfg.Library.Path, c, logger)
	svc := promptservice.New(lib, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the prompt tools over stdio. Logs go to stderr because the
// transport owns stdout. The cache is bootstrapped lazily by the first
// list_prompts call.
func RunMCP(opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	c := cache.New(cfg.Library.Path, logger, func(kind, name string, data []byte) {
		switch kind {
		case "deleted":
			_ = db.DeletePrompt(name)
		default:
			_ = index.IndexPrompt(db, name, data)
		}
	})
	defer c.Shutdown()

	// Reconcile the index with whatever changed on disk while the
	// process was down; the watcher only covers changes after this point.
	if err := index.Sync(db, cfg.Library.Path, logger); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	lib := library.New(cfg.Library.Path, c, logger)
	svc := promptservice.New(lib, db)

	logger.Info("Serving MCP tools on stdio", slog.String("library_path", cfg.Library.Path))
	return mcpserver.New(svc).ServeStdio()
}
