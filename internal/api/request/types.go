package request

import "github.com/akumm2k/reversi/internal/model"

// StartRequest is the request body for starting a game
type StartRequest struct {
	Login string `json:"login"`
}

// StartBotRequest is the request body for starting a game against a bot
type StartBotRequest struct {
	Login    string `json:"login"`
	Strategy string `json:"strategy,omitempty"`
}

// Client identifies the connecting player
type Client struct {
	Login string `json:"login"`
}

// ConnectRequest is the request body for joining a specific game
type ConnectRequest struct {
	Client Client `json:"client"`
	GameID string `json:"gameId" validate:"required"`
}

// ConnectRandomRequest is the request body for joining any waiting game
type ConnectRandomRequest struct {
	Login string `json:"login"`
}

// MoveRequest is the request body for placing a disk
type MoveRequest struct {
	Disk   string            `json:"disk" validate:"required"`
	Coord  *model.Coordinate `json:"coord" validate:"required"`
	GameID string            `json:"gameId" validate:"required"`
}
