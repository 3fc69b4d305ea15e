package cli

import (
	"fmt"
	"strings"

	"github.com/park285/famhub/pkg/famdto"
)

// renderBoard draws the match for a terminal. Empty tic-tac-toe cells show
// their index so the player can type it.
func renderBoard(m *famdto.Match) string {
	if len(m.Pits) > 0 {
		return renderPits(m)
	}
	var b strings.Builder
	for row := 0; row < 3; row++ {
		cells := make([]string, 3)
		for col := 0; col < 3; col++ {
			i := row*3 + col
			cells[col] = fmt.Sprint(i)
			if i < len(m.Cells) && m.Cells[i] != "" {
				cells[col] = m.Cells[i]
			}
		}
		b.WriteString(" " + strings.Join(cells, " | ") + "\n")
		if row < 2 {
			b.WriteString("---+---+---\n")
		}
	}
	return b.String()
}

// renderPits shows player 2's row on top, right to left, so sowing reads
// counter-clockwise.
func renderPits(m *famdto.Match) string {
	half := len(m.Pits) / 2
	var top, bottom, topIdx, bottomIdx []string
	for i := len(m.Pits) - 1; i >= half; i-- {
		top = append(top, fmt.Sprintf("%2d", m.Pits[i]))
		topIdx = append(topIdx, fmt.Sprintf("%2d", i))
	}
	for i := 0; i < half; i++ {
		bottom = append(bottom, fmt.Sprintf("%2d", m.Pits[i]))
		bottomIdx = append(bottomIdx, fmt.Sprintf("%2d", i))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "     %s\n", strings.Join(topIdx, "  "))
	fmt.Fprintf(&b, "%-4s[%s]  %d\n", short(m.Player2Name, m.Player2ID), strings.Join(top, "]["), m.Player2Score)
	fmt.Fprintf(&b, "%-4s[%s]  %d\n", short(m.Player1Name, m.Player1ID), strings.Join(bottom, "]["), m.Player1Score)
	fmt.Fprintf(&b, "     %s\n", strings.Join(bottomIdx, "  "))
	return b.String()
}

func short(name, id string) string {
	s := name
	if s == "" {
		s = id
	}
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

// movePrompt describes the legal inputs for the current player.
func movePrompt(m *famdto.Match, me string) string {
	if len(m.Pits) == 0 {
		var free []string
		for i, c := range m.Cells {
			if c == "" {
				free = append(free, fmt.Sprint(i))
			}
		}
		return "cell " + strings.Join(free, ",") + " or q"
	}
	lo := 0
	if me == m.Player2ID {
		lo = len(m.Pits) / 2
	}
	var pits []string
	for i := lo; i < lo+len(m.Pits)/2; i++ {
		if m.Pits[i] > 0 {
			pits = append(pits, fmt.Sprint(i))
		}
	}
	return "pit " + strings.Join(pits, ",") + " or q"
}
