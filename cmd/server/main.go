// Socratic dialogue server
package main

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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/socratic-labs/dialogue/internal/api"
	"github.com/socratic-labs/dialogue/internal/config"
	"github.com/socratic-labs/dialogue/internal/dialogue"
	"github.com/socratic-labs/dialogue/internal/logging"
	"github.com/socratic-labs/dialogue/internal/metrics"
	"github.com/socratic-labs/dialogue/internal/middleware"
	"github.com/socratic-labs/dialogue/internal/store"
	"github.com/socratic-labs/dialogue/web"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	_, closeLog, err := logging.Setup(cfg.Log)
	if err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := closeLog(); closeErr != nil {
			slog.Error("Failed to close log file", "error", closeErr)
		}
	}()
	if envErr != nil {
		slog.Info("No .env file found, using environment variables")
	}

	slog.Info("Starting server", "port", cfg.Port, "store", cfg.Store.Backend)

	// Initialize dependencies.
	repo, err := newRepository(cfg.Store)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Session store ready", "backend", cfg.Store.Backend)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	// Initialize services and handlers.
	svc := dialogue.NewService(repo, dialogue.WithMetrics(m))
	dialogueHandler := api.NewDialogueHandler(svc, cfg.MaxBodyBytes)
	healthHandler := api.NewHealthHandler(repo, cfg.Store.Backend)
	assets := web.Assets(cfg.StaticDir)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	dialogueHandler.RegisterRoutes(r)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	r.Get("/", web.IndexHandler(assets).ServeHTTP)
	r.Handle("/static/*", web.StaticHandler(assets))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func newRepository(cfg config.StoreConfig) (store.Repository, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreSQLite:
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Backend)
	}
}
