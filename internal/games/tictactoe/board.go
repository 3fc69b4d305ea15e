// Package tictactoe holds the pure rules of a 3x3 game. The inviter plays X
// and moves first.
package tictactoe

import "errors"

type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

var (
	ErrOutOfRange = errors.New("cell index out of range")
	ErrOccupied   = errors.New("cell already taken")
)

// Board cells are numbered row-major from 0 to 8.
type Board [9]Mark

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// MarkFor maps seat 1 to X and seat 2 to O.
func MarkFor(seat int) Mark {
	if seat == 1 {
		return X
	}
	return O
}

// Play returns a copy of b with m placed at index.
func (b Board) Play(index int, m Mark) (Board, error) {
	if index < 0 || index >= len(b) {
		return b, ErrOutOfRange
	}
	if b[index] != Empty {
		return b, ErrOccupied
	}
	b[index] = m
	return b, nil
}

// CalculateWinner returns the mark owning a complete line, or Empty.
func CalculateWinner(b Board) Mark {
	for _, l := range lines {
		if m := b[l[0]]; m != Empty && m == b[l[1]] && m == b[l[2]] {
			return m
		}
	}
	return Empty
}

func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Outcome reports whether the game is over and who won. A full board
// without a line is a draw.
func (b Board) Outcome() (winner Mark, draw, over bool) {
	if w := CalculateWinner(b); w != Empty {
		return w, false, true
	}
	if b.Full() {
		return Empty, true, true
	}
	return Empty, false, false
}

// Cells converts the board to its wire form.
func (b Board) Cells() []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = string(c)
	}
	return out
}

// FromCells is the inverse of Cells. Unknown marks read as empty.
func FromCells(cells []string) Board {
	var b Board
	for i := 0; i < len(b) && i < len(cells); i++ {
		switch Mark(cells[i]) {
		case X, O:
			b[i] = Mark(cells[i])
		}
	}
	return b
}
