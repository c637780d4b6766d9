package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/akumm2k/reversi/internal/api"
	"github.com/akumm2k/reversi/internal/config"
	"github.com/akumm2k/reversi/internal/factory"
	"github.com/akumm2k/reversi/internal/storage"
	redisstorage "github.com/akumm2k/reversi/internal/storage/redis"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\n%s", config.Usage())
	}
	flag.Parse()

	// A missing .env is fine; the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", slog.String("error", err.Error()))
	}

	cfg := config.MustLoad(*configPath)

	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		Retention: storage.Retention{
			Waiting:    cfg.Retention.Waiting,
			InProgress: cfg.Retention.InProgress,
			Finished:   cfg.Retention.Finished,
		},
		JanitorInterval: cfg.Retention.JanitorInterval,
		BotSearchDepth:  cfg.Bot.SearchDepth,
	}

	if cfg.Storage.Type == config.StorageRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.MaxRetries = cfg.Redis.MaxRetries
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start background workers", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Registry:       app.Registry,
		GameController: app.GameController,
		BotService:     app.BotService,
		HubManager:     app.HubManager,
		Publisher:      app.Publisher,
	})

	server := api.NewServer(router, api.ServerConfig{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, logger)
	server.OnShutdown(app.HubManager.Close)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			cancel()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
