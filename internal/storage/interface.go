package storage

import (
	"context"
	"time"

	"github.com/akumm2k/reversi/internal/model"
)

// UpdateFunc mutates a private copy of a game.
// Returning an error discards the copy and leaves the stored game unchanged.
type UpdateFunc func(game *model.Game) error

// Storage defines the interface for data persistence
type Storage interface {
	// CreateGame stores a new game, failing with ErrGameExists on an id collision
	CreateGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	DeleteGame(ctx context.Context, id model.GameID) error

	// UpdateGame runs fn against the latest committed state of the game,
	// exclusively with respect to every other UpdateGame on the same id,
	// and returns the committed result.
	UpdateGame(ctx context.Context, id model.GameID, fn UpdateFunc) (*model.Game, error)

	// ListWaitingGames returns WAITING games, oldest first (ties by id)
	ListWaitingGames(ctx context.Context, limit int) ([]*model.Game, error)

	// PurgeExpired deletes games past their retention window and returns their ids
	PurgeExpired(ctx context.Context, now time.Time, retention Retention) ([]model.GameID, error)
}

// Retention controls how long games are kept, per status
type Retention struct {
	Waiting    time.Duration // since creation
	InProgress time.Duration // since the last move
	Finished   time.Duration // since the game ended
}

// DefaultRetention returns the standard retention windows
func DefaultRetention() Retention {
	return Retention{
		Waiting:    30 * time.Minute,
		InProgress: 24 * time.Hour,
		Finished:   10 * time.Minute,
	}
}

// For returns the retention window for a status, zero meaning forever
func (r Retention) For(status model.GameStatus) time.Duration {
	switch status {
	case model.StatusWaiting:
		return r.Waiting
	case model.StatusInProgress:
		return r.InProgress
	case model.StatusFinished:
		return r.Finished
	default:
		return 0
	}
}

// Expired returns true if game has outlived its retention window at now
func (r Retention) Expired(game *model.Game, now time.Time) bool {
	window := r.For(game.Status)
	if window <= 0 {
		return false
	}
	return !now.Before(ExpiresAt(game, window))
}

// ExpiresAt returns when game expires given its status window
func ExpiresAt(game *model.Game, window time.Duration) time.Time {
	switch game.Status {
	case model.StatusWaiting:
		return game.CreatedAt.Add(window)
	case model.StatusFinished:
		if game.FinishedAt != nil {
			return game.FinishedAt.Add(window)
		}
	}
	return game.UpdatedAt.Add(window)
}

// Less orders games oldest first, then by id
func Less(a, b *model.Game) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
