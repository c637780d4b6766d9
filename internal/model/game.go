package model

import "time"

// GameID uniquely identifies a game session
type GameID string

// GameStatus represents the current phase of a game
type GameStatus string

const (
	StatusWaiting    GameStatus = "WAITING"     // Awaiting the second player
	StatusInProgress GameStatus = "IN_PROGRESS" // Players alternating turns
	StatusFinished   GameStatus = "FINISHED"    // Terminal
)

// Move records the last move applied to a game
type Move struct {
	Disk    Disk
	Coord   Coordinate
	Flipped []Coordinate
	// Passed is true when the opponent had no legal reply and the mover keeps the turn
	Passed bool
}

// Game is a single match between two players
type Game struct {
	ID          GameID
	Board       Board
	Player1     Player
	Player2     *Player // nil while waiting
	CurrentTurn Disk
	Status      GameStatus
	Winner      *Player // nil while playing, and on a draw
	LastMove    *Move

	// Version increments on every state transition
	Version int64

	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// PlayerFor returns the player holding the given disk, or nil
func (g *Game) PlayerFor(d Disk) *Player {
	if g.Player1.Disk == d {
		return &g.Player1
	}
	if g.Player2 != nil && g.Player2.Disk == d {
		return g.Player2
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil
func (g *Game) CurrentPlayer() *Player {
	return g.PlayerFor(g.CurrentTurn)
}

// IsDraw returns true for a finished game with no winner
func (g *Game) IsDraw() bool {
	return g.Status == StatusFinished && g.Winner == nil
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	if g.Player2 != nil {
		p := *g.Player2
		c.Player2 = &p
	}
	if g.Winner != nil {
		w := *g.Winner
		c.Winner = &w
	}
	if g.LastMove != nil {
		m := *g.LastMove
		m.Flipped = append([]Coordinate(nil), g.LastMove.Flipped...)
		c.LastMove = &m
	}
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
