package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/akumm2k/reversi/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Snapshot:
		o.printSnapshot(v)
	case HealthResult:
		o.printHealthResult(v)
	case StrategiesResult:
		o.printStrategies(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	Login       string `json:"login"`
	Disk        string `json:"disk"`
	IsBot       bool   `json:"isBot"`
	BotStrategy string `json:"botStrategy,omitempty"`
}

// Coord response type
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Move response type
type Move struct {
	Disk    string  `json:"disk"`
	Coord   Coord   `json:"coord"`
	Flipped []Coord `json:"flipped"`
	Passed  bool    `json:"passed"`
}

// Score response type
type Score struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// Snapshot response type
type Snapshot struct {
	GameID            string  `json:"gameId"`
	Board             [][]int `json:"board"`
	Status            string  `json:"status"`
	CurrentGamePlayer *Player `json:"currentGamePlayer"`
	GamePlayer1       *Player `json:"gamePlayer1"`
	GamePlayer2       *Player `json:"gamePlayer2"`
	PossibleMoves     []Coord `json:"possibleMoves"`
	Winner            *Player `json:"winner"`
	LastMove          *Move   `json:"lastMove"`
	Score             Score   `json:"score"`
	Version           int64   `json:"version"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// StrategiesResult response type
type StrategiesResult struct {
	Strategies []string `json:"strategies"`
}

func describePlayer(p *Player) string {
	if p == nil {
		return "(waiting)"
	}
	if p.IsBot {
		return fmt.Sprintf("%s [%s, bot]", p.Login, p.Disk)
	}
	return fmt.Sprintf("%s [%s]", p.Login, p.Disk)
}

func (o *Output) printSnapshot(s Snapshot) {
	fmt.Fprintf(o.w, "Game: %s (v%d)\n", s.GameID, s.Version)
	fmt.Fprintf(o.w, "Status: %s\n", s.Status)
	fmt.Fprintf(o.w, "Players: %s vs %s\n", describePlayer(s.GamePlayer1), describePlayer(s.GamePlayer2))
	fmt.Fprintf(o.w, "Score: WHITE %d - BLACK %d\n", s.Score.White, s.Score.Black)

	if s.LastMove != nil {
		fmt.Fprintf(o.w, "Last move: %s at (%d,%d), %d flipped\n",
			s.LastMove.Disk, s.LastMove.Coord.X, s.LastMove.Coord.Y, len(s.LastMove.Flipped))
		if s.LastMove.Passed {
			fmt.Fprintln(o.w, "Opponent has no move and passes")
		}
	}

	switch s.Status {
	case "IN_PROGRESS":
		fmt.Fprintf(o.w, "To move: %s\n", describePlayer(s.CurrentGamePlayer))
	case "FINISHED":
		if s.Winner != nil {
			fmt.Fprintf(o.w, "Winner: %s\n", describePlayer(s.Winner))
		} else {
			fmt.Fprintln(o.w, "Result: draw")
		}
	}

	fmt.Fprintln(o.w)
	fmt.Fprint(o.w, RenderBoard(s.Board, s.PossibleMoves))
}

// RenderBoard draws the board as text. Rows are x, columns are y.
// W and B are disks, * marks a possible move.
func RenderBoard(board [][]int, possible []Coord) string {
	if len(board) == 0 {
		return ""
	}
	grid, err := model.BoardFromRows(board)
	if err != nil {
		return fmt.Sprintf("(unreadable board: %v)\n", err)
	}

	marks := make(map[Coord]bool, len(possible))
	for _, c := range possible {
		marks[c] = true
	}

	var b strings.Builder

	// Column headers
	b.WriteString("   ")
	for y := 0; y < model.BoardSize; y++ {
		fmt.Fprintf(&b, " %d", y)
	}
	b.WriteString("\n")

	border := "   +" + strings.Repeat("--", model.BoardSize) + "-+\n"
	b.WriteString(border)
	for x := 0; x < model.BoardSize; x++ {
		fmt.Fprintf(&b, " %d |", x)
		for y := 0; y < model.BoardSize; y++ {
			cell := "."
			switch grid.Get(model.Coordinate{X: x, Y: y}) {
			case model.White:
				cell = "W"
			case model.Black:
				cell = "B"
			default:
				if marks[Coord{X: x, Y: y}] {
					cell = "*"
				}
			}
			b.WriteString(" " + cell)
		}
		b.WriteString(" |\n")
	}
	b.WriteString(border)
	return b.String()
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}

func (o *Output) printStrategies(s StrategiesResult) {
	for _, name := range s.Strategies {
		fmt.Fprintln(o.w, name)
	}
}
