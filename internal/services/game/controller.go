package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/akumm2k/reversi/internal/dependencies/clock"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/storage"
)

// Controller runs the game state machine against storage.
// Every transition happens inside storage.UpdateGame, so concurrent calls on
// one game are applied one at a time against the latest committed state.
// A game past its retention window is reported as not found even before the
// janitor removes it.
type Controller struct {
	storage   storage.Storage
	clock     clock.Clock
	retention storage.Retention
	logger    *slog.Logger
}

// NewController creates a new GameController
func NewController(store storage.Storage, clk clock.Clock, retention storage.Retention, logger *slog.Logger) *Controller {
	return &Controller{
		storage:   store,
		clock:     clk,
		retention: retention,
		logger:    logger.With(slog.String("component", "game-controller")),
	}
}

// CreateGame stores a new WAITING game with creator as WHITE
func (c *Controller) CreateGame(ctx context.Context, id model.GameID, creator model.Player) (*model.Game, error) {
	game := NewGame(id, creator, c.clock.Now())
	if err := c.storage.CreateGame(ctx, game); err != nil {
		return nil, err
	}

	c.logger.Info("game created",
		slog.String("game_id", string(id)),
		slog.String("login", creator.Login),
	)
	return game, nil
}

// GetGame retrieves a game by ID
func (c *Controller) GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	game, err := c.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if c.retention.Expired(game, c.clock.Now()) {
		return nil, model.ErrGameNotFound
	}
	return game, nil
}

// update runs fn on a live game, rejecting one that has already expired
func (c *Controller) update(ctx context.Context, gameID model.GameID, now time.Time, fn storage.UpdateFunc) (*model.Game, error) {
	return c.storage.UpdateGame(ctx, gameID, func(g *model.Game) error {
		if c.retention.Expired(g, now) {
			return model.ErrGameNotFound
		}
		return fn(g)
	})
}

// Join seats player as BLACK in a WAITING game
func (c *Controller) Join(ctx context.Context, gameID model.GameID, player model.Player) (*model.Game, error) {
	now := c.clock.Now()
	game, err := c.update(ctx, gameID, now, func(g *model.Game) error {
		return Join(g, player, now)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("player joined",
		slog.String("game_id", string(gameID)),
		slog.String("login", player.Login),
	)
	return game, nil
}

// Move applies a move for side
func (c *Controller) Move(ctx context.Context, gameID model.GameID, side model.Disk, coord model.Coordinate) (*model.Game, error) {
	now := c.clock.Now()
	game, err := c.update(ctx, gameID, now, func(g *model.Game) error {
		return ApplyMove(g, side, coord, now)
	})
	if err != nil {
		c.logger.Debug("move rejected",
			slog.String("game_id", string(gameID)),
			slog.String("disk", side.String()),
			slog.Int("x", coord.X),
			slog.Int("y", coord.Y),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	attrs := []any{
		slog.String("game_id", string(gameID)),
		slog.String("disk", side.String()),
		slog.Int("x", coord.X),
		slog.Int("y", coord.Y),
		slog.Int64("version", game.Version),
	}
	if game.Status == model.StatusFinished {
		winner := ""
		if game.Winner != nil {
			winner = game.Winner.Login
		}
		c.logger.Info("game finished", append(attrs,
			slog.Int("white", game.Board.Count(model.White)),
			slog.Int("black", game.Board.Count(model.Black)),
			slog.String("winner", winner),
			slog.Bool("draw", game.IsDraw()),
		)...)
	} else {
		c.logger.Debug("move applied", attrs...)
	}
	return game, nil
}
