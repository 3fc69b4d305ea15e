package callclient

import "time"

type State string

const (
	StateIdle       State = "idle"
	StateCalling    State = "calling"
	StateRinging    State = "ringing"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"

	StateEnded      State = "ended"
	StateDeclined   State = "declined"
	StateNoAnswer   State = "no_answer"
	StateSuperseded State = "superseded"
	StateFailed     State = "failed"
)

var liveStates = []State{StateCalling, StateRinging, StateConnecting, StateConnected}

// Terminal reports whether s closes an attempt.
func (s State) Terminal() bool {
	switch s {
	case StateEnded, StateDeclined, StateNoAnswer, StateSuperseded, StateFailed:
		return true
	}
	return false
}

// Idle reports whether a new attempt may start from s.
func (s State) Idle() bool { return s == StateIdle || s.Terminal() }

// Transition is published on every state change.
type Transition struct {
	From   State
	To     State
	Reason string
	CallID string
	At     time.Time
}
