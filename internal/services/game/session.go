package game

import (
	"time"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/services/rules"
)

// NewGame returns a WAITING game with creator seated as WHITE
func NewGame(id model.GameID, creator model.Player, now time.Time) *model.Game {
	creator.Disk = model.White
	return &model.Game{
		ID:          id,
		Board:       model.InitialBoard(),
		Player1:     creator,
		CurrentTurn: model.White,
		Status:      model.StatusWaiting,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Join seats player as BLACK and starts the game. WHITE moves first.
func Join(g *model.Game, player model.Player, now time.Time) error {
	if g.Status != model.StatusWaiting || g.Player2 != nil {
		return model.ErrSessionFull
	}

	player.Disk = model.Black
	g.Player2 = &player
	g.Status = model.StatusInProgress
	g.CurrentTurn = model.White
	touch(g, now)
	return nil
}

// ApplyMove places a disk for side at coord and advances the turn.
// On error g is left untouched.
func ApplyMove(g *model.Game, side model.Disk, coord model.Coordinate, now time.Time) error {
	if g.Status != model.StatusInProgress {
		return model.ErrGameNotInProgress
	}
	if !side.IsSide() {
		return model.ErrInvalidDisk
	}
	if side != g.CurrentTurn {
		return model.ErrNotYourTurn
	}
	if !coord.Valid() {
		return model.ErrInvalidCoordinate
	}

	flips, err := rules.Flips(g.Board, side, coord)
	if err != nil {
		return err
	}
	board, err := g.Board.Apply(coord, side, flips)
	if err != nil {
		return err
	}

	g.Board = board
	g.LastMove = &model.Move{Disk: side, Coord: coord, Flipped: flips}
	advanceTurn(g, side, now)
	touch(g, now)
	return nil
}

// advanceTurn hands the turn to the opponent if it can move, keeps it with
// mover if only mover can move, and otherwise ends the game.
func advanceTurn(g *model.Game, mover model.Disk, now time.Time) {
	opponent := mover.Opponent()
	switch {
	case rules.HasLegalMove(g.Board, opponent):
		g.CurrentTurn = opponent
	case rules.HasLegalMove(g.Board, mover):
		g.CurrentTurn = mover
		if g.LastMove != nil {
			g.LastMove.Passed = true
		}
	default:
		finish(g, now)
	}
}

func finish(g *model.Game, now time.Time) {
	g.Status = model.StatusFinished
	g.Winner = nil

	white, black := g.Board.Count(model.White), g.Board.Count(model.Black)
	var winner *model.Player
	switch {
	case white > black:
		winner = g.PlayerFor(model.White)
	case black > white:
		winner = g.PlayerFor(model.Black)
	}
	if winner != nil {
		w := *winner
		g.Winner = &w
	}

	finishedAt := now
	g.FinishedAt = &finishedAt
}

func touch(g *model.Game, now time.Time) {
	g.Version++
	g.UpdatedAt = now
}
