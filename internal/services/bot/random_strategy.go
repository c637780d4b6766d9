package bot

import (
	"github.com/akumm2k/reversi/internal/dependencies/random"
	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/services/rules"
)

// RandomStrategy picks uniformly among the legal moves
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseMove returns a random legal move
func (s *RandomStrategy) ChooseMove(game *model.Game, side model.Disk) (model.Coordinate, bool) {
	moves := rules.LegalMoves(game.Board, side)
	if len(moves) == 0 {
		return model.Coordinate{}, false
	}
	return moves[s.random.Intn(len(moves))], true
}
