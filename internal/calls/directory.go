// Package calls keeps the server's Session Directory: at most one accepted
// session per user on either side, plus the short-lived outcomes a caller
// still has to observe after its session left the directory.
package calls

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/famhub/pkg/famdto"
)

var (
	ErrInvalidArgs  = famdto.DomainError{Code: famdto.CodeInvalidArgs, Message: "invalid call arguments"}
	ErrSelfTarget   = famdto.DomainError{Code: famdto.CodeSelfTarget, Message: "cannot call yourself"}
	ErrNotFound     = famdto.DomainError{Code: famdto.CodeNotFound, Message: "no such call for this user"}
	ErrInvalidState = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "call is no longer pending"}
	ErrBusy         = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "user is already in a call"}
	ErrGlare        = famdto.DomainError{Code: famdto.CodeInvalidState, Message: "user is already calling you"}
)

type Directory struct {
	cfg    Config
	now    func() time.Time
	online OnlineFunc

	mu sync.Mutex
	// calleeID -> live session (pending or accepted)
	byCallee map[string]*Session
	// callerID -> terminal outcome not yet observed
	outcomes map[string]outcome
}

type Option func(*Directory)

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithOnline lets Sweep drop accepted sessions whose participants vanished.
func WithOnline(fn OnlineFunc) Option {
	return func(d *Directory) { d.online = fn }
}

func NewDirectory(cfg Config, opts ...Option) *Directory {
	d := &Directory{
		cfg:      cfg,
		now:      time.Now,
		byCallee: make(map[string]*Session),
		outcomes: make(map[string]outcome),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreatePending registers a new attempt from callerID to calleeID.
// A pending session already addressed to the callee is replaced.
func (d *Directory) CreatePending(callerID, callerName, calleeID string, offer []byte) (*Session, error) {
	callerID = strings.TrimSpace(callerID)
	calleeID = strings.TrimSpace(calleeID)
	if callerID == "" || calleeID == "" || len(offer) == 0 {
		return nil, ErrInvalidArgs
	}
	if callerID == calleeID {
		return nil, ErrSelfTarget
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()

	if d.inAcceptedCall(calleeID, callerID) || d.inAcceptedCall(callerID, "") {
		return nil, ErrBusy
	}
	if d.cfg.GlareTiebreak {
		if in := d.byCallee[callerID]; in != nil && in.State == StatePending && in.CallerID == calleeID {
			if callerID > calleeID {
				return nil, ErrGlare
			}
			d.supersede(in, now)
		}
	}

	// a user holds at most one outgoing attempt
	for _, s := range d.byCallee {
		if s.CallerID == callerID {
			d.close(s, StateEnded, now)
		}
	}
	delete(d.outcomes, callerID)

	if prev := d.byCallee[calleeID]; prev != nil {
		d.supersede(prev, now)
	}

	s := &Session{
		ID:         "call_" + uuid.NewString(),
		CallerID:   callerID,
		CallerName: callerName,
		CalleeID:   calleeID,
		State:      StatePending,
		Offer:      append([]byte(nil), offer...),
		CreatedAt:  now,
	}
	d.byCallee[calleeID] = s
	return s.clone(), nil
}

// PendingFor returns the pending session addressed to calleeID, or nil.
func (d *Directory) PendingFor(calleeID string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.byCallee[strings.TrimSpace(calleeID)]; s != nil && s.State == StatePending {
		return s.clone()
	}
	return nil
}

// OutgoingStatus reports the caller's live attempt, or a terminal outcome
// once, or StateNone.
func (d *Directory) OutgoingStatus(callerID string) Status {
	callerID = strings.TrimSpace(callerID)
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.byCallee {
		if s.CallerID != callerID {
			continue
		}
		st := Status{State: s.State, CallID: s.ID}
		if s.State == StateAccepted {
			st.Answer = append([]byte(nil), s.Answer...)
		}
		return st
	}
	if o, ok := d.outcomes[callerID]; ok {
		delete(d.outcomes, callerID)
		if d.now().Before(o.expiresAt) {
			return Status{State: o.state, CallID: o.callID}
		}
	}
	return Status{State: StateNone}
}

// Accept attaches the callee's answer. Only the addressed callee may accept,
// and only once.
func (d *Directory) Accept(sessionID, calleeID string, answer []byte) (*Session, error) {
	if len(answer) == 0 {
		return nil, ErrInvalidArgs
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookup(sessionID, calleeID)
	if err != nil {
		return nil, err
	}
	now := d.now()
	// the callee's own outgoing attempt dies with the accept
	for _, out := range d.byCallee {
		if out.CallerID == s.CalleeID && out.State == StatePending {
			d.close(out, StateEnded, now)
		}
	}
	s.Answer = append([]byte(nil), answer...)
	s.State = StateAccepted
	s.AnsweredAt = now
	return s.clone(), nil
}

// Decline frees the callee slot and keeps the outcome for the caller for
// the configured grace window.
func (d *Directory) Decline(sessionID, calleeID string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookup(sessionID, calleeID)
	if err != nil {
		return nil, err
	}
	now := d.now()
	d.close(s, StateDeclined, now)
	d.outcomes[s.CallerID] = outcome{callID: s.ID, state: StateDeclined, expiresAt: now.Add(d.cfg.DeclineGrace)}
	return s.clone(), nil
}

// End removes every live session the user takes part in, on either side.
// Calling it with nothing live is a no-op.
func (d *Directory) End(userID string) []*Session {
	userID = strings.TrimSpace(userID)
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var ended []*Session
	for _, s := range d.byCallee {
		if s.CallerID == userID || s.CalleeID == userID {
			d.close(s, StateEnded, now)
			ended = append(ended, s.clone())
		}
	}
	delete(d.outcomes, userID)
	return ended
}

// EndSession removes the single live session callID, provided userID takes
// part in it. It returns nil when there is no such session.
func (d *Directory) EndSession(userID, callID string) *Session {
	userID = strings.TrimSpace(userID)
	callID = strings.TrimSpace(callID)
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.byCallee {
		if s.ID == callID && (s.CallerID == userID || s.CalleeID == userID) {
			d.close(s, StateEnded, d.now())
			return s.clone()
		}
	}
	return nil
}

// Sweep drops stale pending sessions, expired outcomes and accepted
// sessions whose participants are no longer online.
func (d *Directory) Sweep() SweepResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var res SweepResult
	for _, s := range d.byCallee {
		switch s.State {
		case StatePending:
			if d.cfg.PendingTTL > 0 && now.Sub(s.CreatedAt) >= d.cfg.PendingTTL {
				d.close(s, StateEnded, now)
				res.ExpiredPending++
			}
		case StateAccepted:
			if d.online != nil && (!d.online(s.CallerID) || !d.online(s.CalleeID)) {
				d.close(s, StateEnded, now)
				res.DroppedAccepted++
			}
		}
	}
	for caller, o := range d.outcomes {
		if !now.Before(o.expiresAt) {
			delete(d.outcomes, caller)
			res.ExpiredOutcomes++
		}
	}
	return res
}

// Len returns the number of live sessions.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byCallee)
}

func (d *Directory) lookup(sessionID, calleeID string) (*Session, error) {
	s := d.byCallee[strings.TrimSpace(calleeID)]
	if s == nil || s.ID != strings.TrimSpace(sessionID) {
		return nil, ErrNotFound
	}
	if s.State != StatePending {
		return nil, ErrInvalidState
	}
	return s, nil
}

// inAcceptedCall reports whether userID is in an accepted call with
// anyone other than peer. An empty peer matches every accepted call.
func (d *Directory) inAcceptedCall(userID, peer string) bool {
	for _, s := range d.byCallee {
		if s.State != StateAccepted {
			continue
		}
		if (s.CalleeID == userID && s.CallerID != peer) || (s.CallerID == userID && s.CalleeID != peer) {
			return true
		}
	}
	return false
}

func (d *Directory) supersede(s *Session, now time.Time) {
	d.close(s, StateSuperseded, now)
	if d.cfg.NotifySuperseded {
		d.outcomes[s.CallerID] = outcome{callID: s.ID, state: StateSuperseded, expiresAt: now.Add(d.cfg.DeclineGrace)}
	}
}

// close must be called with d.mu held.
func (d *Directory) close(s *Session, st State, now time.Time) {
	s.State = st
	s.ClosedAt = now
	if cur := d.byCallee[s.CalleeID]; cur == s {
		delete(d.byCallee, s.CalleeID)
	}
}
