package calls

import (
	"time"

	"github.com/park285/famhub/pkg/famdto"
)

type State string

const (
	StatePending    State = famdto.CallPending
	StateAccepted   State = famdto.CallAccepted
	StateDeclined   State = famdto.CallDeclined
	StateSuperseded State = famdto.CallSuperseded
	StateEnded      State = "ended"
	// StateNone is only ever reported to a caller; no session carries it.
	StateNone State = famdto.CallNone
)

// Live reports whether a session in this state still occupies its callee slot.
func (s State) Live() bool { return s == StatePending || s == StateAccepted }

// Session is one call attempt between a caller and a callee.
type Session struct {
	ID         string
	CallerID   string
	CallerName string
	CalleeID   string
	State      State
	Offer      []byte
	Answer     []byte
	CreatedAt  time.Time
	AnsweredAt time.Time
	ClosedAt   time.Time
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Offer = append([]byte(nil), s.Offer...)
	if s.Answer != nil {
		c.Answer = append([]byte(nil), s.Answer...)
	}
	return &c
}

// Status is what the caller sees when polling its outgoing attempt.
type Status struct {
	State  State
	CallID string
	Answer []byte
}

// SweepResult counts what a Sweep pass reclaimed.
type SweepResult struct {
	ExpiredPending  int
	DroppedAccepted int
	ExpiredOutcomes int
}

func (r SweepResult) Total() int {
	return r.ExpiredPending + r.DroppedAccepted + r.ExpiredOutcomes
}

// OnlineFunc reports whether a user is currently present.
type OnlineFunc func(userID string) bool

// Config tunes Directory timing and the replace rules.
type Config struct {
	PendingTTL       time.Duration
	DeclineGrace     time.Duration
	NotifySuperseded bool
	GlareTiebreak    bool
}

func DefaultConfig() Config {
	return Config{
		PendingTTL:       45 * time.Second,
		DeclineGrace:     5 * time.Second,
		NotifySuperseded: true,
	}
}

// outcome is a terminal result kept for the caller's next status poll.
type outcome struct {
	callID    string
	state     State
	expiresAt time.Time
}
