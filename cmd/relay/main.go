package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/swiftdrop/courier-relay/internal/cache"
	"github.com/swiftdrop/courier-relay/internal/config"
	"github.com/swiftdrop/courier-relay/internal/database"
	"github.com/swiftdrop/courier-relay/internal/engine"
	"github.com/swiftdrop/courier-relay/internal/history"
	"github.com/swiftdrop/courier-relay/internal/hub"
	"github.com/swiftdrop/courier-relay/internal/server"
	"github.com/swiftdrop/courier-relay/internal/upstream"
	"github.com/swiftdrop/courier-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local development; config YAML expands ${VAR}.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting courier relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"addr", cfg.Server.Addr,
		"upstream", cfg.Upstream.BaseURL,
		"history_enabled", cfg.History.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Upstream backend client
	backend := upstream.NewClient(
		cfg.Upstream.BaseURL,
		upstream.WithLogger(logger),
		upstream.WithStatusTimeout(cfg.Upstream.StatusTimeout),
		upstream.WithStoreTimeout(cfg.Upstream.StoreTimeout),
	)

	locations := cache.New()
	rooms := hub.New(logger)

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithSessionBuffer(cfg.Hub.SessionBuffer),
	}

	// Optional local history sink
	var historyWriter *history.Writer
	if cfg.History.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to history database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		historyWriter = history.NewWriter(history.Config{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
			BufferSize:    cfg.History.BufferSize,
		}, pool, logger)

		if err := historyWriter.Start(ctx); err != nil {
			logger.Error("failed to start history writer", "error", err)
			os.Exit(1)
		}

		engineOpts = append(engineOpts, engine.WithRecorder(historyWriter))
		serverOpts = append(serverOpts, server.WithDatabase(pool))
	}

	eng := engine.New(locations, rooms, backend, backend, engineOpts...)
	srv := server.New(eng, rooms, locations, serverOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("relay listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}

	if err := eng.Close(shutdownCtx); err != nil {
		logger.Warn("engine close", "error", err)
	}

	if historyWriter != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := historyWriter.Stop(stopCtx); err != nil {
			logger.Warn("history writer stop", "error", err)
		}
		stopCancel()
	}

	logger.Info("relay stopped")
}
