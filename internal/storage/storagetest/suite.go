// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/storage"
)

// Epoch is the creation time of games built by NewGame
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// NewGame returns a WAITING game created at Epoch+offset
func NewGame(id model.GameID, offset time.Duration) *model.Game {
	created := Epoch.Add(offset)
	return &model.Game{
		ID:          id,
		Board:       model.InitialBoard(),
		Player1:     model.Player{Login: "alice", Disk: model.White},
		CurrentTurn: model.White,
		Status:      model.StatusWaiting,
		Version:     1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// Suite runs the storage contract against the backend returned by Storage
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) TestCreateAndGetGame() {
	game := NewGame("game-1", 0)
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, game))

	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(game.ID, got.ID)
	s.Equal(game.Board, got.Board)
	s.Equal("alice", got.Player1.Login)
	s.Equal(model.White, got.Player1.Disk)
	s.Equal(model.StatusWaiting, got.Status)
	s.True(game.CreatedAt.Equal(got.CreatedAt))
	s.Nil(got.Player2)
}

func (s *Suite) TestCreateGameRejectsDuplicateID() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))

	err := s.Storage.CreateGame(s.Ctx, NewGame("game-1", time.Second))
	s.ErrorIs(err, model.ErrGameExists)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Storage.GetGame(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestReturnedGameIsACopy() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))

	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	got.Board[0][0] = model.Black
	got.Status = model.StatusFinished

	again, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.Empty, again.Board[0][0])
	s.Equal(model.StatusWaiting, again.Status)
}

func (s *Suite) TestUpdateGameCommits() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))

	updated, err := s.Storage.UpdateGame(s.Ctx, "game-1", func(g *model.Game) error {
		g.Player2 = &model.Player{Login: "bob", Disk: model.Black}
		g.Status = model.StatusInProgress
		g.Version++
		return nil
	})
	s.Require().NoError(err)
	s.Equal(model.StatusInProgress, updated.Status)
	s.Equal(int64(2), updated.Version)

	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Require().NotNil(got.Player2)
	s.Equal("bob", got.Player2.Login)
	s.Equal(model.StatusInProgress, got.Status)
}

func (s *Suite) TestUpdateGameErrorLeavesGameUnchanged() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))
	boom := errors.New("boom")

	_, err := s.Storage.UpdateGame(s.Ctx, "game-1", func(g *model.Game) error {
		g.Board[0][0] = model.Black
		g.Version++
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.Empty, got.Board[0][0])
	s.Equal(int64(1), got.Version)
}

func (s *Suite) TestUpdateGameNotFound() {
	_, err := s.Storage.UpdateGame(s.Ctx, "nonexistent", func(g *model.Game) error { return nil })
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestDeleteGame() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))

	s.Require().NoError(s.Storage.DeleteGame(s.Ctx, "game-1"))

	_, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.ErrorIs(err, model.ErrGameNotFound)
	waiting, err := s.Storage.ListWaitingGames(s.Ctx, 0)
	s.Require().NoError(err)
	s.Empty(waiting)
}

func (s *Suite) TestListWaitingGamesOldestFirst() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-c", 2*time.Minute)))
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-b", time.Minute)))
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-a", 2*time.Minute)))
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-started", 0)))

	_, err := s.Storage.UpdateGame(s.Ctx, "game-started", func(g *model.Game) error {
		g.Player2 = &model.Player{Login: "bob", Disk: model.Black}
		g.Status = model.StatusInProgress
		return nil
	})
	s.Require().NoError(err)

	waiting, err := s.Storage.ListWaitingGames(s.Ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(waiting, 3)
	s.Equal(model.GameID("game-b"), waiting[0].ID)
	s.Equal(model.GameID("game-a"), waiting[1].ID)
	s.Equal(model.GameID("game-c"), waiting[2].ID)

	limited, err := s.Storage.ListWaitingGames(s.Ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(model.GameID("game-b"), limited[0].ID)
}

func (s *Suite) TestPurgeExpired() {
	retention := storage.Retention{
		Waiting:    30 * time.Minute,
		InProgress: 24 * time.Hour,
		Finished:   10 * time.Minute,
	}
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("old-waiting", 0)))
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("new-waiting", 20*time.Minute)))
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("playing", 0)))
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("finished", 0)))

	_, err := s.Storage.UpdateGame(s.Ctx, "playing", func(g *model.Game) error {
		g.Player2 = &model.Player{Login: "bob", Disk: model.Black}
		g.Status = model.StatusInProgress
		return nil
	})
	s.Require().NoError(err)
	finishedAt := Epoch.Add(15 * time.Minute)
	_, err = s.Storage.UpdateGame(s.Ctx, "finished", func(g *model.Game) error {
		g.Player2 = &model.Player{Login: "bob", Disk: model.Black}
		g.Status = model.StatusFinished
		g.FinishedAt = &finishedAt
		g.UpdatedAt = finishedAt
		return nil
	})
	s.Require().NoError(err)

	purged, err := s.Storage.PurgeExpired(s.Ctx, Epoch.Add(31*time.Minute), retention)
	s.Require().NoError(err)
	s.ElementsMatch([]model.GameID{"old-waiting", "finished"}, purged)

	_, err = s.Storage.GetGame(s.Ctx, "old-waiting")
	s.ErrorIs(err, model.ErrGameNotFound)
	_, err = s.Storage.GetGame(s.Ctx, "finished")
	s.ErrorIs(err, model.ErrGameNotFound)
	_, err = s.Storage.GetGame(s.Ctx, "playing")
	s.NoError(err)

	waiting, err := s.Storage.ListWaitingGames(s.Ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(waiting, 1)
	s.Equal(model.GameID("new-waiting"), waiting[0].ID)
}

func (s *Suite) TestConcurrentUpdatesAreSerialized() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.UpdateGame(s.Ctx, "game-1", func(g *model.Game) error {
				g.Version++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	got, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(int64(1+workers), got.Version)
}

func (s *Suite) TestConcurrentJoinOnlyOneWins() {
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, NewGame("game-1", 0)))

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.UpdateGame(s.Ctx, "game-1", func(g *model.Game) error {
				if g.Status != model.StatusWaiting {
					return model.ErrSessionFull
				}
				g.Player2 = &model.Player{Login: "bob", Disk: model.Black}
				g.Status = model.StatusInProgress
				return nil
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else {
				s.ErrorIs(err, model.ErrSessionFull)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, winners)
}
