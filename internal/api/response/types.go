package response

import (
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/services/rules"
)

// Player represents a seated player in API responses
type Player struct {
	Login       string `json:"login"`
	Disk        string `json:"disk"`
	IsBot       bool   `json:"isBot"`
	BotStrategy string `json:"botStrategy,omitempty"`
}

// PlayerFromModel converts a model.Player, or returns nil for nil
func PlayerFromModel(p *model.Player) *Player {
	if p == nil {
		return nil
	}
	return &Player{
		Login:       p.Login,
		Disk:        p.Disk.String(),
		IsBot:       p.IsBot,
		BotStrategy: p.BotStrategy,
	}
}

// Move represents the last applied move
type Move struct {
	Disk    string             `json:"disk"`
	Coord   model.Coordinate   `json:"coord"`
	Flipped []model.Coordinate `json:"flipped"`
	Passed  bool               `json:"passed"`
}

// Score holds disk counts per side
type Score struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Snapshot is the full game state sent to clients after every transition
type Snapshot struct {
	GameID            string             `json:"gameId"`
	Board             [][]int            `json:"board"`
	Status            string             `json:"status"`
	CurrentGamePlayer *Player            `json:"currentGamePlayer"`
	GamePlayer1       *Player            `json:"gamePlayer1"`
	GamePlayer2       *Player            `json:"gamePlayer2"`
	PossibleMoves     []model.Coordinate `json:"possibleMoves"`
	Winner            *Player            `json:"winner"`
	LastMove          *Move              `json:"lastMove"`
	Score             Score              `json:"score"`
	Version           int64              `json:"version"`
}

// SnapshotFromModel converts model.Game to a Snapshot.
// possibleMoves is computed for the side to move and is empty unless the
// game is in progress. currentGamePlayer is nil once the game is finished.
func SnapshotFromModel(g *model.Game) Snapshot {
	possible := []model.Coordinate{}
	if g.Status == model.StatusInProgress {
		possible = rules.LegalMoves(g.Board, g.CurrentTurn)
	}
	var current *Player
	if g.Status != model.StatusFinished {
		current = PlayerFromModel(g.CurrentPlayer())
	}

	var last *Move
	if g.LastMove != nil {
		flipped := append([]model.Coordinate{}, g.LastMove.Flipped...)
		last = &Move{
			Disk:    g.LastMove.Disk.String(),
			Coord:   g.LastMove.Coord,
			Flipped: flipped,
			Passed:  g.LastMove.Passed,
		}
	}

	return Snapshot{
		GameID:            string(g.ID),
		Board:             g.Board.Rows(),
		Status:            string(g.Status),
		CurrentGamePlayer: current,
		GamePlayer1:       PlayerFromModel(&g.Player1),
		GamePlayer2:       PlayerFromModel(g.Player2),
		PossibleMoves:     possible,
		Winner:            PlayerFromModel(g.Winner),
		LastMove:          last,
		Score: Score{
			White: g.Board.Count(model.White),
			Black: g.Board.Count(model.Black),
		},
		Version: g.Version,
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}

// Strategies lists the bot strategies a server offers
type Strategies struct {
	Strategies []string `json:"strategies"`
}
