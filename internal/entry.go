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

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/connectivity"
	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/localstore"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/media"
	"github.com/starford/laguz/internal/pending"
	"github.com/starford/laguz/internal/remote"
	"github.com/starford/laguz/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.Duration("sync_interval", cfg.Sync.Interval.Std()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Durable local store.
	kv, err := localstore.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init local store: %w", err)
	}
	defer kv.Close()
	store := localstore.NewStore(kv)

	// Pending-operation queue, restored from the store.
	queue, err := pending.NewQueue(store, cfg.Sync.RetryCeiling, logger)
	if err != nil {
		return fmt.Errorf("init pending queue: %w", err)
	}

	// Remote client (tests may inject their own).
	remoteClient := app.remote
	if remoteClient == nil {
		remoteClient = remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout.Std())
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Sync engine.
	eng, err := engine.New(store, remoteClient, queue, broker, logger, cfg.Sync.Interval.Std())
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	monitor := connectivity.NewMonitor(eng, logger)

	// Media store for note attachments.
	mediaStore, err := media.NewStore(cfg.Media.Dir)
	if err != nil {
		return fmt.Errorf("init media store: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Engine loop: the single serialization point for all sync triggers.
	g.Go(func() error {
		return eng.Run(gCtx)
	})

	// Media watcher with SSE callback.
	g.Go(func() error {
		return media.Watch(gCtx, mediaStore, logger, func(kind, name string) {
			broker.PublishEntityEvent(kind, name)
		})
	})

	if app.mcp {
		// MCP stdio transport instead of the HTTP API.
		g.Go(func() error {
			return mcpserver.New(eng).ServeStdio()
		})
		return g.Wait()
	}

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
	apiRouter := api.NewRouter(eng, monitor, mediaStore, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Assume reachability when a remote is configured; the first real
	// platform signal corrects this. The online edge kicks off the
	// startup sync once the engine loop is accepting requests.
	if cfg.Remote.BaseURL != "" {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
			case <-time.After(100 * time.Millisecond):
				monitor.OnConnectivityChange(true)
			}
			return nil
		})
	}

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
