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
	"golang.org/x/sync/errgroup"

	"github.com/starford/gpx2maps/internal/api"
	"github.com/starford/gpx2maps/internal/elevation"
	"github.com/starford/gpx2maps/internal/index"
	"github.com/starford/gpx2maps/internal/logging"
	"github.com/starford/gpx2maps/internal/mapslink"
	"github.com/starford/gpx2maps/internal/mcpserver"
	"github.com/starford/gpx2maps/internal/routeservice"
	"github.com/starford/gpx2maps/internal/scraper"
	"github.com/starford/gpx2maps/internal/sse"
	"github.com/starford/gpx2maps/internal/storage"
)

// App holds the wired library: store, index and route service.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *storage.FS
	DB      *index.DB
	Service *routeservice.Service

	version string
}

// New builds the application from options. The caller must Close it.
func New(opts ...Option) (*App, error) {
	app := &application{logOutput: os.Stderr, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat, app.logOutput)

	logger.Debug("Configuration loaded",
		slog.String("library_path", cfg.Library.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.Bool("offline", cfg.Scrape.Offline),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svcOpts := []routeservice.Option{
		routeservice.WithLogger(logger),
		routeservice.WithSources(NewRegistry(cfg, logger)),
		routeservice.WithBuilder(cfg.Maps.Builder()),
	}
	if conv, err := NewConverter(cfg, cfg.Maps.APIKey, logger); err == nil {
		svcOpts = append(svcOpts, routeservice.WithConverter(conv))
	}
	if enricher, err := NewEnricher(cfg, logger); err != nil {
		logger.Warn("elevation back-fill disabled", slog.String("error", err.Error()))
	} else if enricher != nil {
		svcOpts = append(svcOpts, routeservice.WithEnricher(enricher))
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Service: routeservice.NewService(store, db, svcOpts...),
		version: app.version,
	}, nil
}

// Close releases the index.
func (a *App) Close() error {
	return a.DB.Close()
}

// NewRegistry builds the route sources from the scrape configuration.
func NewRegistry(cfg *Config, logger *slog.Logger) *scraper.Registry {
	return scraper.NewRegistry(cfg.Scrape.ScraperConfig(), logger)
}

// NewConverter builds a link converter for apiKey. It returns
// apperr.ErrMissingAPIKey when apiKey is empty.
func NewConverter(cfg *Config, apiKey string, logger *slog.Logger) (*mapslink.Converter, error) {
	opts := []mapslink.ConverterOption{
		mapslink.WithBuilder(cfg.Maps.Builder()),
		mapslink.WithValidation(cfg.Maps.ValidateLinks),
		mapslink.WithLogger(logger),
	}
	if cfg.Maps.BaseURL != "" {
		opts = append(opts, mapslink.WithBaseURL(cfg.Maps.BaseURL))
	}
	return mapslink.NewConverter(apiKey, opts...)
}

// NewEnricher returns the SRTM enricher, or nil when back-fill is disabled.
func NewEnricher(cfg *Config, logger *slog.Logger) (*elevation.Enricher, error) {
	if !cfg.Elevation.Enabled {
		return nil, nil
	}
	client := &http.Client{Timeout: cfg.Scrape.Timeout}
	lookup, err := elevation.NewSRTM(client)
	if err != nil {
		return nil, err
	}
	return elevation.NewEnricher(lookup, client, logger), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := New(opts...)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}

// Serve syncs the index, then runs the REST API, the SSE feed and the
// library watcher until ctx is cancelled or a signal arrives.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	if err := index.Sync(a.DB, a.Store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(a.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := a.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := index.Watch(gCtx, a.DB, a.Store, a.Store.Root(), logger, broker.PublishRouteEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server",
			slog.String("address", cfg.App.HTTP.Address()),
			slog.String("library_path", cfg.Library.Path))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP syncs the index and serves MCP over stdin/stdout.
func (a *App) ServeMCP() error {
	if err := index.Sync(a.DB, a.Store, a.Logger); err != nil {
		a.Logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return mcpserver.New(a.Service, a.version).ServeStdio()
}
