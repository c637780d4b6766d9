// Package rules implements Reversi move legality and disk flipping.
package rules

import (
	"sort"

	"github.com/akumm2k/reversi/internal/model"
)

// directions are the eight compass offsets (dx, dy)
var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// LegalMoves returns every cell where side may place a disk, sorted row-major
func LegalMoves(board model.Board, side model.Disk) []model.Coordinate {
	moves := make([]model.Coordinate, 0, 16)
	if !side.IsSide() {
		return moves
	}
	for x := 0; x < model.BoardSize; x++ {
		for y := 0; y < model.BoardSize; y++ {
			c := model.Coordinate{X: x, Y: y}
			if isLegal(board, side, c) {
				moves = append(moves, c)
			}
		}
	}
	return moves
}

// HasLegalMove returns true if side has at least one legal move
func HasLegalMove(board model.Board, side model.Disk) bool {
	if !side.IsSide() {
		return false
	}
	for x := 0; x < model.BoardSize; x++ {
		for y := 0; y < model.BoardSize; y++ {
			if isLegal(board, side, model.Coordinate{X: x, Y: y}) {
				return true
			}
		}
	}
	return false
}

// IsLegal returns true if side may place a disk at target
func IsLegal(board model.Board, side model.Disk, target model.Coordinate) bool {
	return side.IsSide() && target.Valid() && isLegal(board, side, target)
}

// Flips returns the opposing disks that placing side at target would flip,
// sorted row-major.
func Flips(board model.Board, side model.Disk, target model.Coordinate) ([]model.Coordinate, error) {
	if !target.Valid() {
		return nil, model.ErrInvalidCoordinate
	}
	if !side.IsSide() {
		return nil, model.ErrInvalidDisk
	}
	if board.Get(target) != model.Empty {
		return nil, model.ErrIllegalMove
	}

	var flips []model.Coordinate
	for _, d := range directions {
		flips = append(flips, run(board, side, target, d[0], d[1])...)
	}
	if len(flips) == 0 {
		return nil, model.ErrIllegalMove
	}

	sort.Slice(flips, func(i, j int) bool { return flips[i].Less(flips[j]) })
	return flips, nil
}

func isLegal(board model.Board, side model.Disk, target model.Coordinate) bool {
	if board.Get(target) != model.Empty {
		return false
	}
	for _, d := range directions {
		if len(run(board, side, target, d[0], d[1])) > 0 {
			return true
		}
	}
	return false
}

// run walks from target in direction (dx, dy) and returns the contiguous
// opposing disks if they are closed by a disk of side, or nil otherwise.
func run(board model.Board, side model.Disk, target model.Coordinate, dx, dy int) []model.Coordinate {
	opponent := side.Opponent()
	var line []model.Coordinate
	c := model.Coordinate{X: target.X + dx, Y: target.Y + dy}
	for c.Valid() && board.Get(c) == opponent {
		line = append(line, c)
		c = model.Coordinate{X: c.X + dx, Y: c.Y + dy}
	}
	if len(line) == 0 || !c.Valid() || board.Get(c) != side {
		return nil
	}
	return line
}
