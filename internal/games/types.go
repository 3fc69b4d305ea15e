package games

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/famhub/pkg/famdto"
)

type Kind string

const (
	KindTicTacToe Kind = "tictactoe"
	KindGebeta    Kind = "gebeta"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTicTacToe, KindGebeta:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown game %q", ErrUnknownKind, s)
	}
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Invite is the persisted state of a match invitation.
type Invite struct {
	ID           string       `json:"id"`
	Kind         Kind         `json:"kind"`
	FromUserID   string       `json:"from_user_id"`
	FromUsername string       `json:"from_username"`
	ToUserID     string       `json:"to_user_id"`
	Status       InviteStatus `json:"status"`
	MatchID      string       `json:"match_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	RespondedAt  time.Time    `json:"responded_at,omitempty"`
}

// AppliedMove records one accepted move; Seat is 1 or 2.
type AppliedMove struct {
	Seat  int `json:"seat"`
	Index int `json:"index"`
}

// Finish methods.
const (
	MethodLine    = "line"
	MethodScore   = "score"
	MethodDraw    = "draw"
	MethodForfeit = "forfeit"
)

// Match is the authoritative state of a game between two seats.
// Seat 1 is the inviter and moves first.
type Match struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	Player1ID   string        `json:"player1_id"`
	Player1Name string        `json:"player1_name"`
	Player2ID   string        `json:"player2_id"`
	Player2Name string        `json:"player2_name"`
	Cells       []string      `json:"cells,omitempty"`
	Pits        []int         `json:"pits,omitempty"`
	Captured    [2]int        `json:"captured"`
	Turn        int           `json:"turn"`
	Moves       []AppliedMove `json:"moves"`
	Finished    bool          `json:"finished"`
	Winner      string        `json:"winner,omitempty"`
	Draw        bool          `json:"draw,omitempty"`
	Method      string        `json:"method,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Seat returns 1 or 2 for a participant and 0 otherwise.
func (m *Match) Seat(userID string) int {
	switch strings.TrimSpace(userID) {
	case "":
		return 0
	case m.Player1ID:
		return 1
	case m.Player2ID:
		return 2
	}
	return 0
}

func (m *Match) PlayerID(seat int) string {
	if seat == 1 {
		return m.Player1ID
	}
	if seat == 2 {
		return m.Player2ID
	}
	return ""
}

func (m *Match) MoveCount() int { return len(m.Moves) }

// Result is what gets written to the results store once a match ends.
type Result struct {
	MatchID      string
	Kind         Kind
	Player1ID    string
	Player2ID    string
	WinnerID     string
	Draw         bool
	Method       string
	Player1Score int
	Player2Score int
	MoveCount    int
	StartedAt    time.Time
	EndedAt      time.Time
	Reward       int
}

func (inv *Invite) DTO() *famdto.Invite {
	if inv == nil {
		return nil
	}
	return &famdto.Invite{
		ID:           inv.ID,
		Kind:         string(inv.Kind),
		FromUserID:   inv.FromUserID,
		FromUsername: inv.FromUsername,
		ToUserID:     inv.ToUserID,
		Status:       string(inv.Status),
		MatchID:      inv.MatchID,
		CreatedAt:    inv.CreatedAt,
	}
}

// DTO renders the poll view. CurrentTurn is empty once the match is over.
func (m *Match) DTO() *famdto.Match {
	if m == nil {
		return nil
	}
	out := &famdto.Match{
		ID:          m.ID,
		Kind:        string(m.Kind),
		Player1ID:   m.Player1ID,
		Player1Name: m.Player1Name,
		Player2ID:   m.Player2ID,
		Player2Name: m.Player2Name,
		Cells:       append([]string(nil), m.Cells...),
		Pits:        append([]int(nil), m.Pits...),
		MoveCount:   m.MoveCount(),
		Finished:    m.Finished,
		Winner:      m.Winner,
		Draw:        m.Draw,
		Method:      m.Method,
		UpdatedAt:   m.UpdatedAt,
	}
	if !m.Finished {
		out.CurrentTurn = m.PlayerID(m.Turn)
	}
	out.Player1Score, out.Player2Score = rulesFor(m.Kind).Scores(m)
	return out
}
