package model

import "errors"

// Common errors used across the application
var (
	// Board errors
	ErrInvalidCoordinate = errors.New("coordinate is outside the board")
	ErrInvalidDisk       = errors.New("disk must be WHITE or BLACK")

	// Move errors
	ErrIllegalMove       = errors.New("move is not legal")
	ErrNotYourTurn       = errors.New("not this side's turn")
	ErrGameNotInProgress = errors.New("game is not in progress")

	// Session errors
	ErrSessionFull     = errors.New("game already has two players")
	ErrGameNotFound    = errors.New("game not found")
	ErrGameExists      = errors.New("game already exists")
	ErrNoAvailableGame = errors.New("no game is waiting for a player")
	ErrInvalidLogin    = errors.New("invalid login")

	// Bot errors
	ErrUnknownStrategy = errors.New("unknown bot strategy")
)
