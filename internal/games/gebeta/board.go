// Package gebeta holds the pure sowing rules: two rows of six pits, four
// seeds each. Seat 1 owns pits 0-5, seat 2 owns pits 6-11.
package gebeta

import "errors"

const (
	NumPits    = 12
	RowSize    = 6
	StartSeeds = 4
)

var (
	ErrOutOfRange = errors.New("pit index out of range")
	ErrNotOwnPit  = errors.New("pit belongs to the opponent")
	ErrEmptyPit   = errors.New("pit is empty")
)

type Board struct {
	Pits [NumPits]int
	// Captured seeds, index 0 for seat 1 and 1 for seat 2.
	Captured [2]int
}

func NewBoard() Board {
	var b Board
	for i := range b.Pits {
		b.Pits[i] = StartSeeds
	}
	return b
}

// Owns reports whether pit lies in seat's row.
func Owns(seat, pit int) bool {
	lo := (seat - 1) * RowSize
	return seat >= 1 && seat <= 2 && pit >= lo && pit < lo+RowSize
}

// Move describes one completed sowing.
type Move struct {
	Pit      int
	LastPit  int
	Captured int
}

// Sow lifts every seed from pit and drops one in each following pit,
// wrapping at 12. Landing in an own pit that then holds exactly 2 or 4
// seeds captures them.
func (b Board) Sow(seat, pit int) (Board, Move, error) {
	if pit < 0 || pit >= NumPits {
		return b, Move{}, ErrOutOfRange
	}
	if !Owns(seat, pit) {
		return b, Move{}, ErrNotOwnPit
	}
	seeds := b.Pits[pit]
	if seeds == 0 {
		return b, Move{}, ErrEmptyPit
	}
	b.Pits[pit] = 0
	cur := pit
	for ; seeds > 0; seeds-- {
		cur = (cur + 1) % NumPits
		b.Pits[cur]++
	}
	mv := Move{Pit: pit, LastPit: cur}
	if Owns(seat, cur) && (b.Pits[cur] == 2 || b.Pits[cur] == 4) {
		mv.Captured = b.Pits[cur]
		b.Captured[seat-1] += mv.Captured
		b.Pits[cur] = 0
	}
	return b, mv, nil
}

// RowSeeds sums the seeds still in seat's row.
func (b Board) RowSeeds(seat int) int {
	lo := (seat - 1) * RowSize
	n := 0
	for i := lo; i < lo+RowSize; i++ {
		n += b.Pits[i]
	}
	return n
}

// Over is true once either row is empty.
func (b Board) Over() bool {
	return b.RowSeeds(1) == 0 || b.RowSeeds(2) == 0
}

// Scores returns captured plus remaining seeds per seat.
func (b Board) Scores() (p1, p2 int) {
	return b.Captured[0] + b.RowSeeds(1), b.Captured[1] + b.RowSeeds(2)
}

// Outcome returns the winning seat (0 when none) once the board is over.
// Equal final scores are a draw.
func (b Board) Outcome() (winner int, draw, over bool) {
	if !b.Over() {
		return 0, false, false
	}
	p1, p2 := b.Scores()
	switch {
	case p1 > p2:
		return 1, false, true
	case p2 > p1:
		return 2, false, true
	default:
		return 0, true, true
	}
}

// FromPits rebuilds a board from its stored form.
func FromPits(pits []int, captured1, captured2 int) Board {
	var b Board
	copy(b.Pits[:], pits)
	b.Captured = [2]int{captured1, captured2}
	return b
}
