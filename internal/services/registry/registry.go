// Package registry owns the set of live game sessions: creating them,
// matching players into them, and expiring them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akumm2k/reversi/internal/dependencies/clock"
	"github.com/akumm2k/reversi/internal/dependencies/random"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/services/game"
	"github.com/akumm2k/reversi/internal/storage"
)

const (
	// createAttempts bounds retries on a game id collision
	createAttempts = 3

	// randomCandidates is how many waiting games ConnectRandom tries
	randomCandidates = 50
)

// Registry creates, finds and matches game sessions
type Registry struct {
	storage   storage.Storage
	games     *game.Controller
	clock     clock.Clock
	random    random.Random
	retention storage.Retention
	logger    *slog.Logger
}

// New creates a new Registry
func New(
	storage storage.Storage,
	games *game.Controller,
	clock clock.Clock,
	random random.Random,
	retention storage.Retention,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		storage:   storage,
		games:     games,
		clock:     clock,
		random:    random,
		retention: retention,
		logger:    logger.With(slog.String("component", "registry")),
	}
}

// Create starts a new WAITING game with the creator as WHITE
func (r *Registry) Create(ctx context.Context, login string) (*model.Game, error) {
	login, err := model.NormalizeLogin(login)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		id := model.GameID(r.random.UUID())
		g, err := r.games.CreateGame(ctx, id, model.Player{Login: login})
		if errors.Is(err, model.ErrGameExists) {
			r.logger.Warn("game id collision", slog.String("game_id", string(id)))
			continue
		}
		return g, err
	}
	return nil, fmt.Errorf("create game: %w", model.ErrGameExists)
}

// Get returns the game with the given id
func (r *Registry) Get(ctx context.Context, id model.GameID) (*model.Game, error) {
	return r.games.GetGame(ctx, id)
}

// Connect seats login as BLACK in the given WAITING game
func (r *Registry) Connect(ctx context.Context, id model.GameID, login string) (*model.Game, error) {
	login, err := model.NormalizeLogin(login)
	if err != nil {
		return nil, err
	}
	return r.games.Join(ctx, id, model.Player{Login: login})
}

// Seat places an already validated player in the given WAITING game
func (r *Registry) Seat(ctx context.Context, id model.GameID, player model.Player) (*model.Game, error) {
	return r.games.Join(ctx, id, player)
}

// ConnectRandom seats login in the oldest WAITING game. Games that fill up
// or expire between listing and joining are skipped.
func (r *Registry) ConnectRandom(ctx context.Context, login string) (*model.Game, error) {
	login, err := model.NormalizeLogin(login)
	if err != nil {
		return nil, err
	}

	candidates, err := r.storage.ListWaitingGames(ctx, randomCandidates)
	if err != nil {
		return nil, fmt.Errorf("list waiting games: %w", err)
	}

	for _, candidate := range candidates {
		g, err := r.games.Join(ctx, candidate.ID, model.Player{Login: login})
		switch {
		case err == nil:
			return g, nil
		case errors.Is(err, model.ErrSessionFull), errors.Is(err, model.ErrGameNotFound):
			r.logger.Debug("random candidate taken", slog.String("game_id", string(candidate.ID)))
			continue
		default:
			return nil, err
		}
	}
	return nil, model.ErrNoAvailableGame
}

// PurgeExpired removes games past their retention window
func (r *Registry) PurgeExpired(ctx context.Context) ([]model.GameID, error) {
	purged, err := r.storage.PurgeExpired(ctx, r.clock.Now(), r.retention)
	if err != nil {
		return nil, fmt.Errorf("purge expired games: %w", err)
	}
	if len(purged) > 0 {
		r.logger.Info("purged expired games", slog.Int("count", len(purged)))
	}
	return purged, nil
}

// RunJanitor purges expired games every interval until ctx is done.
// onPurge, if set, is called after every successful pass with the ids it removed.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration, onPurge func([]model.GameID)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := r.PurgeExpired(ctx)
			if err != nil {
				r.logger.Error("janitor pass failed", slog.String("error", err.Error()))
				continue
			}
			if onPurge != nil {
				onPurge(purged)
			}
		}
	}
}
