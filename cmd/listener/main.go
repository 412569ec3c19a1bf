// Package main is the entrypoint for the result listener. It subscribes to
// the result channel, records classification verdicts and finishes the jobs
// that produced them. The API server (cmd/server) is the producing side.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mothclassifier/coordinator/internal/bus"
	"github.com/mothclassifier/coordinator/internal/classify"
	"github.com/mothclassifier/coordinator/internal/config"
	"github.com/mothclassifier/coordinator/internal/jobs"
	"github.com/mothclassifier/coordinator/internal/notify"
	"github.com/mothclassifier/coordinator/internal/reconcile"
	"github.com/mothclassifier/coordinator/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("listener failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "result_channel", cfg.Channels.Result)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

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
	classifyService := classify.NewService(pgStore, cfg.Media.Root)

	listener := reconcile.NewListener(channelBus, pgStore, jobService, classifyService,
		cfg.Channels.Result, cfg.ML.MinAccuracy)

	slog.Info("listener started", "channel", cfg.Channels.Result)
	if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listener run: %w", err)
	}

	slog.Info("listener stopped gracefully")
	return nil
}
