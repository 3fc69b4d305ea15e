package famdto

import "time"

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"username"`
	Coins int    `json:"coins"`
}

type PlayersResponse struct {
	Players []Player `json:"players"`
}

type InviteRequest struct {
	OpponentID string `json:"opponentId"`
}

type InviteResponse struct {
	Success  bool   `json:"success"`
	InviteID string `json:"inviteId"`
}

type Invite struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	FromUserID   string    `json:"fromUserId"`
	FromUsername string    `json:"fromUsername"`
	ToUserID     string    `json:"toUserId"`
	Status       string    `json:"status"`
	MatchID      string    `json:"matchId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CheckInviteResponse struct {
	Invite *Invite `json:"invite"`
}

type RespondInviteRequest struct {
	InviteID string `json:"inviteId"`
	Accepted bool   `json:"accepted"`
}

type RespondInviteResponse struct {
	Success bool   `json:"success"`
	MatchID string `json:"matchId,omitempty"`
}

type InviteStatusResponse struct {
	Exists  bool   `json:"exists"`
	Status  string `json:"status,omitempty"`
	MatchID string `json:"matchId,omitempty"`
}

// Match is the poll view of a game. Cells is set for tictactoe, Pits for gebeta.
type Match struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Player1ID    string    `json:"player1Id"`
	Player1Name  string    `json:"player1Name"`
	Player2ID    string    `json:"player2Id"`
	Player2Name  string    `json:"player2Name"`
	Cells        []string  `json:"cells,omitempty"`
	Pits         []int     `json:"pits,omitempty"`
	CurrentTurn  string    `json:"currentTurn"`
	Player1Score int       `json:"player1Score"`
	Player2Score int       `json:"player2Score"`
	MoveCount    int       `json:"moveCount"`
	Finished     bool      `json:"finished"`
	Winner       string    `json:"winner,omitempty"`
	Draw         bool      `json:"draw,omitempty"`
	Method       string    `json:"method,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type MatchResponse struct {
	Match *Match `json:"match"`
}

// MoveNumber, when set, is the number of moves the client had observed before
// this one; it makes a resubmission of an applied move a no-op.
type MoveRequest struct {
	MatchID    string `json:"matchId"`
	Index      int    `json:"index"`
	MoveNumber *int   `json:"moveNumber,omitempty"`
}

type MoveResponse struct {
	Success bool   `json:"success"`
	Match   *Match `json:"match"`
}

type FinishRequest struct {
	MatchID string `json:"matchId"`
}
