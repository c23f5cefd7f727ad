// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/filedeck/internal/api"
	"github.com/starford/filedeck/internal/catalog"
	"github.com/starford/filedeck/internal/fileops"
	"github.com/starford/filedeck/internal/index"
	"github.com/starford/filedeck/internal/mcpserver"
	"github.com/starford/filedeck/internal/metrics"
	"github.com/starford/filedeck/internal/pathresolver"
	"github.com/starford/filedeck/internal/sse"
	"github.com/starford/filedeck/internal/trash"
)

// core is the file management stack shared by the HTTP and MCP front ends.
type core struct {
	svc      *fileops.Service
	resolver *pathresolver.Resolver
	catalog  *catalog.Catalog
	db       *index.DB // nil when the index is disabled
}

func (c *core) Close() {
	if c.db != nil {
		_ = c.db.Close()
	}
}

// buildCore prepares the roots, the optional SQLite index and the file
// operations service.
func buildCore(cfg *Config, logger *slog.Logger) (*core, error) {
	if cfg.Storage.CreateDirs {
		for _, dir := range []string{cfg.Storage.ManagedRoot, cfg.Storage.TrashRoot} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create root %s: %w", dir, err)
			}
		}
	}

	resolver, err := pathresolver.New(cfg.Storage.ManagedRoot)
	if err != nil {
		return nil, fmt.Errorf("init managed root: %w", err)
	}

	c := &core{resolver: resolver}
	var catOpts []catalog.Option
	var trashOpts []trash.Option
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		c.db = db
		catOpts = append(catOpts, catalog.WithStatsCache(db))
		trashOpts = append(trashOpts, trash.WithLedger(db))
	}

	store, err := trash.New(resolver, cfg.Storage.TrashRoot, trashOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init trash: %w", err)
	}

	if c.db != nil {
		if err := index.Sync(c.db, store.Root(), logger); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	c.catalog = catalog.New(resolver, catOpts...)
	c.svc = fileops.New(resolver, c.catalog, store,
		fileops.WithRecorder(metrics.Recorder{}))
	return c, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOut)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("managed_root", cfg.Storage.ManagedRoot),
		slog.String("trash_root", cfg.Storage.TrashRoot),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	c.svc.AddListener(broker)
	metrics.RegisterSSEClients(broker.ClientCount)

	var watcher *index.Watcher
	if c.db != nil && cfg.Index.Watch {
		watcher = index.NewWatcher(c.resolver.Root().String(), c.catalog, logger, func(kind fileops.EventKind, rel string) {
			metrics.RecordExternalChange(string(kind))
			broker.FileChanged(fileops.Event{Kind: kind, Path: rel})
		})
		c.svc.AddListener(watcher)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health check and metrics endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if c.db != nil {
			if err := c.db.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		if _, err := os.Stat(c.resolver.Root().String()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(c.svc, cfg.Auth.Options(), cfg.Upload.MaxBytes, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the managed root for changes made outside filedeck.
	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gCtx); err != nil {
				logger.Warn("file watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the
// server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOut)

	c, err := buildCore(app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("managed_root", c.resolver.Root().String()))
	return mcpserver.New(c.svc).ServeStdio()
}
