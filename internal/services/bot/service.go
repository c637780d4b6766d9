package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/services/game"
	"github.com/akumm2k/reversi/internal/services/registry"
	"github.com/akumm2k/reversi/internal/services/rules"
)

// MaxBotIterations is a safety limit for the Play loop
const MaxBotIterations = model.BoardSize * model.BoardSize

// ErrStrategyIllegalMove is returned when a strategy picks a move the rules reject
var ErrStrategyIllegalMove = errors.New("bot strategy chose an illegal move")

// Service seats bots in games and plays their turns
type Service struct {
	registry   *registry.Registry
	games      *game.Controller
	strategies map[string]Strategy
	logger     *slog.Logger
}

// NewService creates a new bot Service
func NewService(
	registry *registry.Registry,
	games *game.Controller,
	strategies map[string]Strategy,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:   registry,
		games:      games,
		strategies: strategies,
		logger:     logger.With(slog.String("component", "bot-service")),
	}
}

// Strategies returns the names of the configured strategies
func (s *Service) Strategies() []string {
	var names []string
	for _, name := range model.ValidBotStrategies() {
		if _, ok := s.strategies[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// StartGame creates a game for login and seats a bot playing strategy as
// BLACK. An empty strategy selects the default.
func (s *Service) StartGame(ctx context.Context, login, strategy string) (*model.Game, error) {
	if strategy == "" {
		strategy = model.DefaultBotStrategy
	}
	if _, ok := s.strategies[strategy]; !ok {
		return nil, model.ErrUnknownStrategy
	}

	created, err := s.registry.Create(ctx, login)
	if err != nil {
		return nil, err
	}

	g, err := s.registry.Seat(ctx, created.ID, model.Player{
		Login:       model.BotLogin(strategy),
		IsBot:       true,
		BotStrategy: strategy,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bot seated",
		slog.String("game_id", string(g.ID)),
		slog.String("strategy", strategy),
	)
	return g, nil
}

// Play makes moves for bots while it is a bot's turn, returning the game
// after each applied move
func (s *Service) Play(ctx context.Context, gameID model.GameID) ([]*model.Game, error) {
	var played []*model.Game

	for i := 0; i < MaxBotIterations; i++ {
		g, err := s.games.GetGame(ctx, gameID)
		if err != nil {
			return played, err
		}
		if g.Status != model.StatusInProgress {
			return played, nil
		}

		player := g.CurrentPlayer()
		if player == nil || !player.IsBot {
			return played, nil
		}
		strategy, ok := s.strategies[player.BotStrategy]
		if !ok {
			return played, model.ErrUnknownStrategy
		}

		coord, ok := strategy.ChooseMove(g, player.Disk)
		if !ok {
			return played, nil
		}
		if !rules.IsLegal(g.Board, player.Disk, coord) {
			return played, fmt.Errorf("bot %s chose (%d,%d): %w", player.BotStrategy, coord.X, coord.Y, ErrStrategyIllegalMove)
		}

		next, err := s.games.Move(ctx, gameID, player.Disk, coord)
		if errors.Is(err, model.ErrNotYourTurn) || errors.Is(err, model.ErrIllegalMove) {
			// the game moved on under us; look again
			continue
		}
		if err != nil {
			return played, err
		}

		s.logger.Debug("bot moved",
			slog.String("game_id", string(gameID)),
			slog.String("strategy", player.BotStrategy),
			slog.Int("x", coord.X),
			slog.Int("y", coord.Y),
		)
		played = append(played, next)
	}

	s.logger.Warn("bot loop hit iteration limit", slog.String("game_id", string(gameID)))
	return played, nil
}
