package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/akumm2k/reversi/internal/dependencies/clock"
	"github.com/akumm2k/reversi/internal/dependencies/random"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/push"
	"github.com/akumm2k/reversi/internal/services/bot"
	"github.com/akumm2k/reversi/internal/services/game"
	"github.com/akumm2k/reversi/internal/services/registry"
	"github.com/akumm2k/reversi/internal/storage"
	"github.com/akumm2k/reversi/internal/storage/memory"
	redisstorage "github.com/akumm2k/reversi/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// DefaultJanitorInterval is used when Config.JanitorInterval is zero
const DefaultJanitorInterval = time.Minute

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	GameController *game.Controller
	Registry       *registry.Registry
	BotService     *bot.Service

	// Push
	HubManager *push.HubManager
	Publisher  push.Publisher

	relay           *push.Relay
	closers         []func() error
	janitorInterval time.Duration
	logger          *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Retention controls how long games are kept.
	// If zero value, defaults to storage.DefaultRetention()
	Retention storage.Retention
	// JanitorInterval is the time between purge passes
	JanitorInterval time.Duration
	// BotSearchDepth is the minimax look-ahead in plies
	BotSearchDepth int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if cfg.Retention == (storage.Retention{}) {
		cfg.Retention = storage.DefaultRetention()
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	clk := clock.New()
	rnd := random.New()

	switch storageType {
	case StorageTypeMemory:
		app := newWithDependencies(memory.New(), clk, rnd, cfg, logger)
		app.Publisher = push.NewLocalPublisher(app.HubManager)
		return app, nil

	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisCfg := *cfg.RedisConfig
		redisCfg.Retention = cfg.Retention
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, err
		}

		// Snapshots go through Redis so every instance's subscribers see them
		app := newWithDependencies(redisStore, clk, rnd, cfg, logger)
		app.Publisher = push.NewRedisPublisher(redisStore.Client())
		app.relay = push.NewRelay(redisStore.Client(), app.HubManager, logger)
		app.closers = append(app.closers, redisStore.Close)
		return app, nil

	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// The caller sets Publisher.
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	depth := cfg.BotSearchDepth
	if depth <= 0 {
		depth = bot.DefaultSearchDepth
	}
	interval := cfg.JanitorInterval
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	gameController := game.NewController(store, clk, cfg.Retention, logger)
	reg := registry.New(store, gameController, clk, rnd, cfg.Retention, logger)
	botService := bot.NewService(reg, gameController, map[string]bot.Strategy{
		model.BotStrategyRandom:  bot.NewRandomStrategy(rnd),
		model.BotStrategyMinimax: bot.NewMinimaxStrategy(depth),
	}, logger)
	hubManager := push.NewHubManager(logger)

	return &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		GameController:  gameController,
		Registry:        reg,
		BotService:      botService,
		HubManager:      hubManager,
		janitorInterval: interval,
		logger:          logger.With(slog.String("component", "app")),
	}
}

// Start launches background work: the Redis relay, if any, and the janitor.
// Both stop when ctx is done.
func (a *App) Start(ctx context.Context) error {
	if a.relay != nil {
		if err := a.relay.Start(ctx); err != nil {
			return err
		}
	}

	go a.Registry.RunJanitor(ctx, a.janitorInterval, a.OnPurge)
	a.logger.Info("background workers started", slog.Duration("janitor_interval", a.janitorInterval))
	return nil
}

// OnPurge drops push hubs for purged games and any hub nobody watches
func (a *App) OnPurge(ids []model.GameID) {
	for _, id := range ids {
		a.HubManager.RemoveHub(id)
	}
	a.HubManager.CleanupEmptyHubs()
}

// Close releases hubs and external connections
func (a *App) Close() error {
	a.HubManager.Close()

	var errs []error
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
