package bot

import "github.com/akumm2k/reversi/internal/model"

// Strategy defines how a bot chooses its move
type Strategy interface {
	// ChooseMove selects a move for side, returning false if side has none
	ChooseMove(game *model.Game, side model.Disk) (model.Coordinate, bool)
}
