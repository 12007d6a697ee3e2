package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/subscription-service/internal/api"
	"github.com/Priya8975/subscription-service/internal/config"
	"github.com/Priya8975/subscription-service/internal/kv"
	"github.com/Priya8975/subscription-service/internal/live"
	"github.com/Priya8975/subscription-service/internal/subscription"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	svc := subscription.NewService(store, logger)

	hub := live.NewHub(logger)
	go hub.Run(ctx)

	router := api.NewRouter(svc, hub, logger, api.RouterConfig{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		StatsWindowDays: cfg.StatsWindowDays,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "backend", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// openStore connects the configured backend and returns it with its closer.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kv.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rs, err := kv.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to Redis")
		return rs, func() { rs.Close() }, nil

	case config.BackendPostgres:
		pg, err := kv.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to PostgreSQL")

		if err := pg.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("database migrations applied")
		return pg, pg.Close, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return kv.NewMemory(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
