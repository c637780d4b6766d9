package model

import "strings"

// BoardSize is the dimension of the square board
const BoardSize = 8

// Disk is the content of a board cell, and the side a player plays
type Disk int

const (
	Empty Disk = 0
	White Disk = 1
	Black Disk = 2
)

// String returns the wire name of the disk
func (d Disk) String() string {
	switch d {
	case White:
		return "WHITE"
	case Black:
		return "BLACK"
	default:
		return "EMPTY"
	}
}

// Opponent returns the opposing side, or Empty for Empty
func (d Disk) Opponent() Disk {
	switch d {
	case White:
		return Black
	case Black:
		return White
	default:
		return Empty
	}
}

// IsSide returns true for White and Black
func (d Disk) IsSide() bool {
	return d == White || d == Black
}

// ParseDisk parses a side name ("WHITE" or "BLACK", case-insensitive)
func ParseDisk(s string) (Disk, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE":
		return White, nil
	case "BLACK":
		return Black, nil
	default:
		return Empty, ErrInvalidDisk
	}
}

// Coordinate identifies a cell on the board.
// X is the row and Y the column, both 0-indexed.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Valid returns true if the coordinate lies on the board
func (c Coordinate) Valid() bool {
	return c.X >= 0 && c.X < BoardSize && c.Y >= 0 && c.Y < BoardSize
}

// Less orders coordinates row-major
func (c Coordinate) Less(o Coordinate) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// Board is the 8x8 grid, indexed Board[x][y].
// It is a value type: copies are independent and boards compare with ==.
type Board [BoardSize][BoardSize]Disk

// InitialBoard returns the standard starting position
func InitialBoard() Board {
	var b Board
	lo := BoardSize/2 - 1
	hi := lo + 1
	b[lo][lo] = White
	b[hi][hi] = White
	b[lo][hi] = Black
	b[hi][lo] = Black
	return b
}

// Get returns the disk at c, or Empty if c is off the board
func (b Board) Get(c Coordinate) Disk {
	if !c.Valid() {
		return Empty
	}
	return b[c.X][c.Y]
}

// Apply returns a new board with move and every flip set to side.
// The receiver is left unchanged.
func (b Board) Apply(move Coordinate, side Disk, flips []Coordinate) (Board, error) {
	if !move.Valid() {
		return b, ErrInvalidCoordinate
	}
	if !side.IsSide() {
		return b, ErrInvalidDisk
	}
	next := b
	next[move.X][move.Y] = side
	for _, f := range flips {
		if !f.Valid() {
			return b, ErrInvalidCoordinate
		}
		next[f.X][f.Y] = side
	}
	return next, nil
}

// Count returns the number of cells holding d
func (b Board) Count(d Disk) int {
	n := 0
	for x := 0; x < BoardSize; x++ {
		for y := 0; y < BoardSize; y++ {
			if b[x][y] == d {
				n++
			}
		}
	}
	return n
}

// IsFull returns true if no cell is empty
func (b Board) IsFull() bool {
	return b.Count(Empty) == 0
}

// Rows returns the board as nested int slices (0 empty, 1 white, 2 black)
func (b Board) Rows() [][]int {
	rows := make([][]int, BoardSize)
	for x := range rows {
		rows[x] = make([]int, BoardSize)
		for y := range rows[x] {
			rows[x][y] = int(b[x][y])
		}
	}
	return rows
}

// BoardFromRows builds a board from its nested int encoding
func BoardFromRows(rows [][]int) (Board, error) {
	var b Board
	if len(rows) != BoardSize {
		return b, ErrInvalidCoordinate
	}
	for x, row := range rows {
		if len(row) != BoardSize {
			return b, ErrInvalidCoordinate
		}
		for y, v := range row {
			d := Disk(v)
			if d != Empty && !d.IsSide() {
				return b, ErrInvalidDisk
			}
			b[x][y] = d
		}
	}
	return b, nil
}
