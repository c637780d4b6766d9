package bot

import (
	"math"
	"time"

	"github.com/akumm2k/reversi/internal/model"
	"github.com/akumm2k/reversi/internal/services/game"
	"github.com/akumm2k/reversi/internal/services/rules"
)

// Heuristic weights
const (
	cornerWeight   = 50
	diskWeight     = 5
	fullLineWeight = 100
	winScore       = 100000
)

// DefaultSearchDepth is the minimax depth used when none is configured
const DefaultSearchDepth = 4

// MinimaxStrategy searches the game tree with alpha-beta pruning and scores
// leaves by corners held, disks held and rows/columns owned end to end
type MinimaxStrategy struct {
	depth int
}

// NewMinimaxStrategy creates a new MinimaxStrategy searching depth plies
func NewMinimaxStrategy(depth int) *MinimaxStrategy {
	if depth < 1 {
		depth = DefaultSearchDepth
	}
	return &MinimaxStrategy{depth: depth}
}

// ChooseMove returns the best move for side found by the search.
// Ties go to the first move in row-major order.
func (s *MinimaxStrategy) ChooseMove(g *model.Game, side model.Disk) (model.Coordinate, bool) {
	moves := rules.LegalMoves(g.Board, side)
	if len(moves) == 0 {
		return model.Coordinate{}, false
	}
	if g.Status != model.StatusInProgress || g.CurrentTurn != side {
		return moves[0], true
	}

	best := moves[0]
	bestScore := math.MinInt
	alpha, beta := math.MinInt, math.MaxInt
	for _, move := range moves {
		child := play(g, side, move)
		score := s.search(child, side, s.depth-1, alpha, beta)
		if score > bestScore {
			bestScore = score
			best = move
		}
		alpha = max(alpha, bestScore)
	}
	return best, true
}

func (s *MinimaxStrategy) search(g *model.Game, me model.Disk, depth int, alpha, beta int) int {
	if depth <= 0 || g.Status != model.StatusInProgress {
		return evaluate(g, me)
	}

	// the pass rule may hand the same side consecutive plies
	maximizing := g.CurrentTurn == me
	moves := rules.LegalMoves(g.Board, g.CurrentTurn)
	if maximizing {
		best := math.MinInt
		for _, move := range moves {
			best = max(best, s.search(play(g, g.CurrentTurn, move), me, depth-1, alpha, beta))
			alpha = max(alpha, best)
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := math.MaxInt
	for _, move := range moves {
		best = min(best, s.search(play(g, g.CurrentTurn, move), me, depth-1, alpha, beta))
		beta = min(beta, best)
		if beta <= alpha {
			break
		}
	}
	return best
}

// play returns a copy of g with the move applied
func play(g *model.Game, side model.Disk, move model.Coordinate) *model.Game {
	child := g.Clone()
	child.LastMove = nil
	// moves come from LegalMoves, so ApplyMove cannot fail
	_ = game.ApplyMove(child, side, move, time.Time{})
	return child
}

// evaluate scores the position from me's point of view
func evaluate(g *model.Game, me model.Disk) int {
	if g.Status == model.StatusFinished {
		mine, theirs := g.Board.Count(me), g.Board.Count(me.Opponent())
		switch {
		case mine > theirs:
			return winScore + mine - theirs
		case mine < theirs:
			return -winScore + mine - theirs
		default:
			return 0
		}
	}
	return score(g.Board, me) - score(g.Board, me.Opponent())
}

func score(b model.Board, side model.Disk) int {
	last := model.BoardSize - 1
	corners := 0
	for _, c := range []model.Coordinate{{X: 0, Y: 0}, {X: 0, Y: last}, {X: last, Y: 0}, {X: last, Y: last}} {
		if b.Get(c) == side {
			corners++
		}
	}

	fullLines := 0
	for i := 0; i < model.BoardSize; i++ {
		row, col := true, true
		for j := 0; j < model.BoardSize; j++ {
			row = row && b[i][j] == side
			col = col && b[j][i] == side
		}
		if row {
			fullLines++
		}
		if col {
			fullLines++
		}
	}

	return cornerWeight*corners + diskWeight*b.Count(side) + fullLineWeight*fullLines
}
