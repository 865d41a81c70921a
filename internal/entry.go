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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/collections"
	"github.com/starford/quire/internal/compiler"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/watch"
)

// ErrBuildFailed is returned by Build when any file produced no entry.
var ErrBuildFailed = errors.New("build failed")

// runtime holds the components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	root    string
	defs    []collections.Definition
	catalog *catalog.Catalog
	closers []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version:   "dev",
		stdout:    os.Stdout,
		logOutput: os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup builds the pipeline and catalog. A nil notifier disables build
// events.
func (app *application) setup(notifier catalog.Notifier) (*runtime, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("content_root", cfg.Content.Root),
		slog.String("collections_file", cfg.Content.CollectionsFile),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Content.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	defs, err := loadCollections(cfg.Content.CollectionsFile)
	if err != nil {
		return nil, err
	}
	comp, err := compiler.New(cfg.CompilerOptions())
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, root: store.Root(), defs: defs}
	pipeOpts := []pipeline.Option{pipeline.WithLogger(logger)}
	catOpts := []catalog.Option{catalog.WithLogger(logger)}
	if notifier != nil {
		catOpts = append(catOpts, catalog.WithNotifier(notifier))
	}

	if cfg.SQLite.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		rt.closers = append(rt.closers, func() { db.Close() })
		pipeOpts = append(pipeOpts, pipeline.WithCache(db))
		catOpts = append(catOpts, catalog.WithIndex(db))
	}

	if cfg.Output.Dir != "" {
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			rt.close()
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		outStore, err := storage.NewFS(cfg.Output.Dir)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("init output: %w", err)
		}
		catOpts = append(catOpts, catalog.WithOutput(outStore))
	}

	p, err := pipeline.New(store, defs, comp, cfg.PipelineConfig(), pipeOpts...)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.catalog = catalog.New(p, catOpts...)
	return rt, nil
}

func loadCollections(path string) ([]collections.Definition, error) {
	if path == "" {
		return collections.Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collections file: %w", err)
	}
	return collections.Load(data)
}

// watch rebuilds the catalog whenever a file matching any collection
// pattern changes.
func (rt *runtime) watch(ctx context.Context) error {
	var patterns []string
	for _, d := range rt.defs {
		patterns = append(patterns, d.Patterns...)
	}
	return watch.Watch(ctx, rt.root, watch.Options{
		Patterns: patterns,
		Debounce: rt.cfg.Content.Debounce,
		Logger:   rt.logger,
	}, func(ctx context.Context, changed []string) {
		rt.logger.Info("Content changed, rebuilding", slog.Int("files", len(changed)))
		if _, err := rt.catalog.Rebuild(ctx); err != nil {
			rt.logger.Warn("rebuild failed", slog.String("error", err.Error()))
		}
	})
}

// Build runs the pipeline once and prints the report. It returns
// ErrBuildFailed when any file failed.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.setup(nil)
	if err != nil {
		return err
	}
	defer rt.close()

	rep, err := rt.catalog.Rebuild(ctx)
	if rep != nil {
		printReport(app.stdout, rep)
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if !rep.OK() {
		return ErrBuildFailed
	}
	return nil
}

// printReport writes entry counts and every failing file with its
// violations.
func printReport(w io.Writer, rep *pipeline.Report) {
	total := 0
	for _, n := range rep.Counts {
		total += n
	}
	fmt.Fprintf(w, "built %d entries in %s (%d cached)\n", total, rep.Duration.Round(time.Millisecond), rep.Cached)
	for _, f := range rep.Failures {
		where := f.Path
		if f.Ordinal != models.NoOrdinal {
			where = fmt.Sprintf("%s#%d", f.Path, f.Ordinal)
		}
		fmt.Fprintf(w, "FAIL %s %s: %s\n", f.Collection, where, f.Message)
		for _, v := range f.Violations {
			fmt.Fprintf(w, "    %s\n", v)
		}
	}
	if rep.Fatal != "" {
		fmt.Fprintf(w, "ABORTED: %s\n", rep.Fatal)
	}
}

// Serve builds the catalog and serves the HTTP API until ctx is cancelled
// or a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2*time.Second, 15*time.Second)
	defer broker.Close()

	rt, err := app.setup(broker)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed initial build leaves the catalog empty; the server still
	// starts so the report can be inspected.
	if _, err := rt.catalog.Rebuild(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(rt.catalog, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if rt.catalog.Snapshot().Report == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if app.watch {
		g.Go(func() error {
			return rt.watch(gCtx)
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

	// Shut down once a signal arrives or another goroutine fails.
	g.Go(func() error {
		<-gCtx.Done()
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

// ServeMCP builds the catalog and serves the MCP tools on stdin/stdout.
// Logs must not go to stdout in this mode.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := app.setup(nil)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := rt.catalog.Rebuild(ctx); err != nil {
		rt.logger.Warn("initial build failed", slog.String("error", err.Error()))
	}
	if app.watch {
		go func() {
			if err := rt.watch(ctx); err != nil {
				rt.logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	srv := mcpserver.New(rt.catalog, app.version)
	rt.logger.Info("Serving MCP on stdio")
	return srv.ServeStdio()
}
