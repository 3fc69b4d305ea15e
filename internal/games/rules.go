package games

import (
	"github.com/park285/famhub/internal/games/gebeta"
	"github.com/park285/famhub/internal/games/tictactoe"
)

// Rules adapts a pure game package to the Match record.
type Rules interface {
	// Init lays out the opening board.
	Init(m *Match)
	// Apply plays index for seat. The turn is not checked here.
	Apply(m *Match, seat, index int) error
	// Outcome inspects the board after a move. winnerSeat is 0 for none.
	Outcome(m *Match) (winnerSeat int, draw, over bool, method string)
	Scores(m *Match) (p1, p2 int)
}

func rulesFor(k Kind) Rules {
	if k == KindGebeta {
		return gebetaRules{}
	}
	return tictactoeRules{}
}

type tictactoeRules struct{}

func (tictactoeRules) Init(m *Match) {
	m.Cells = tictactoe.Board{}.Cells()
	m.Pits = nil
}

func (tictactoeRules) Apply(m *Match, seat, index int) error {
	b, err := tictactoe.FromCells(m.Cells).Play(index, tictactoe.MarkFor(seat))
	if err != nil {
		return err
	}
	m.Cells = b.Cells()
	return nil
}

func (tictactoeRules) Outcome(m *Match) (int, bool, bool, string) {
	w, draw, over := tictactoe.FromCells(m.Cells).Outcome()
	switch {
	case !over:
		return 0, false, false, ""
	case draw:
		return 0, true, true, MethodDraw
	case w == tictactoe.X:
		return 1, false, true, MethodLine
	default:
		return 2, false, true, MethodLine
	}
}

func (tictactoeRules) Scores(*Match) (int, int) { return 0, 0 }

type gebetaRules struct{}

func (gebetaRules) board(m *Match) gebeta.Board {
	return gebeta.FromPits(m.Pits, m.Captured[0], m.Captured[1])
}

func (gebetaRules) Init(m *Match) {
	b := gebeta.NewBoard()
	m.Pits = append([]int(nil), b.Pits[:]...)
	m.Captured = [2]int{}
	m.Cells = nil
}

func (r gebetaRules) Apply(m *Match, seat, index int) error {
	b, _, err := r.board(m).Sow(seat, index)
	if err != nil {
		return err
	}
	m.Pits = append(m.Pits[:0], b.Pits[:]...)
	m.Captured = b.Captured
	return nil
}

func (r gebetaRules) Outcome(m *Match) (int, bool, bool, string) {
	w, draw, over := r.board(m).Outcome()
	switch {
	case !over:
		return 0, false, false, ""
	case draw:
		return 0, true, true, MethodDraw
	default:
		return w, false, true, MethodScore
	}
}

// Scores shows captured seeds while playing and the final tally after.
func (r gebetaRules) Scores(m *Match) (int, int) {
	b := r.board(m)
	if b.Over() {
		return b.Scores()
	}
	return b.Captured[0], b.Captured[1]
}
