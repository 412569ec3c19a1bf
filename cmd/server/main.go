// Package main is the entrypoint for the job intake API server. It creates
// classification jobs and dispatches them to the worker pool; the companion
// listener process (cmd/listener) reconciles the results.
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

	"github.com/mothclassifier/coordinator/internal/api"
	"github.com/mothclassifier/coordinator/internal/api/handler"
	"github.com/mothclassifier/coordinator/internal/api/response"
	"github.com/mothclassifier/coordinator/internal/bus"
	"github.com/mothclassifier/coordinator/internal/config"
	"github.com/mothclassifier/coordinator/internal/dispatch"
	"github.com/mothclassifier/coordinator/internal/jobs"
	"github.com/mothclassifier/coordinator/internal/notify"
	"github.com/mothclassifier/coordinator/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "request_channel", cfg.Channels.Request)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	channelBus, err := bus.NewRedis(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create channel bus: %w", err)
	}
	defer channelBus.Close()

	if err := channelBus.Ping(ctx); err != nil {
		return fmt.Errorf("ping channel bus: %w", err)
	}
	slog.Info("channel bus connected")

	var notifier notify.Notifier = notify.Nop{}
	if cfg.FCM.ServerKey != "" {
		notifier = notify.NewFCM(cfg.FCM.Endpoint, cfg.FCM.ServerKey, cfg.FCM.Timeout)
		slog.Info("push notifications enabled")
	} else {
		slog.Info("push notifications disabled, no FCM server key configured")
	}

	pgStore := store.NewPostgresStore(pool)
	jobService := jobs.NewService(pgStore, notifier)
	coordinator := dispatch.NewCoordinator(pgStore, channelBus, jobService, cfg.Channels.Request)

	jobsHandler := handler.NewJobs(jobService, coordinator)
	router := api.NewRouter(api.Dependencies{
		HealthHandler:    healthHandler(pgStore, channelBus),
		CreateJobHandler: jobsHandler.Create,
		GetJobHandler:    jobsHandler.Get,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and channel-bus connectivity.
func healthHandler(s store.Store, b bus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"bus":      "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := b.Ping(r.Context()); err != nil {
			checks["bus"] = "degraded"
		}

		if checks["database"] != "ok" || checks["bus"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
