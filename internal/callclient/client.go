// Package callclient drives one user's side of a call: it polls for
// incoming calls, places outgoing ones and follows each attempt through
// to a terminal state.
package callclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/famhub/internal/media"
	"github.com/park285/famhub/internal/obslog"
	"github.com/park285/famhub/internal/poll"
	"github.com/park285/famhub/pkg/famdto"
	"go.uber.org/zap"
)

// API is the subset of the signaling API the client uses.
type API interface {
	InitiateCall(ctx context.Context, toUserID string, offer []byte) (string, error)
	CheckIncoming(ctx context.Context) (*famdto.IncomingCall, error)
	CallStatus(ctx context.Context) (famdto.CallStatusResponse, error)
	Answer(ctx context.Context, callID string, answer []byte) error
	Decline(ctx context.Context, callID string) error
	EndCall(ctx context.Context) error
	CancelCall(ctx context.Context, callID string) error
}

type Config struct {
	IncomingInterval time.Duration
	OutgoingInterval time.Duration
	AnswerWindow     time.Duration
	// RequestTimeout bounds each signaling request.
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		IncomingInterval: 2 * time.Second,
		OutgoingInterval: time.Second,
		AnswerWindow:     30 * time.Second,
		RequestTimeout:   5 * time.Second,
	}
}

var (
	ErrBusy       = errors.New("a call is already in progress")
	ErrNotRinging = errors.New("no incoming call to answer")
	ErrNotStarted = errors.New("client not started")
)

type Client struct {
	api       API
	transport media.Factory
	cfg       Config
	log       *zap.Logger
	onRing    func(famdto.IncomingCall)

	events chan Transition

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	state    State
	callID   string
	peer     string
	incoming *famdto.IncomingCall
	link     media.Transport
	ringSeen map[string]bool
	incTask  *poll.Task
	outTask  *poll.Task

	// answering covers the window where the server already holds our
	// answer but the state is still ringing
	answering bool
}

type Option func(*Client)

// OnRing is invoked when an incoming call starts ringing.
func OnRing(fn func(famdto.IncomingCall)) Option {
	return func(c *Client) { c.onRing = fn }
}

func New(api API, transport media.Factory, cfg Config, opts ...Option) *Client {
	c := &Client{
		api:       api,
		transport: transport,
		cfg:       cfg,
		log:       obslog.Named("callclient"),
		events:    make(chan Transition, 64),
		state:     StateIdle,
		ringSeen:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events publishes every state change. Slow readers lose events rather
// than stall the client.
func (c *Client) Events() <-chan Transition { return c.events }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CallID returns the id of the current or most recent call attempt.
func (c *Client) CallID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callID
}

// Start begins polling for incoming calls. Loops stop when ctx ends or
// Close is called.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.incTask = poll.Start(c.ctx, poll.Options{Interval: c.cfg.IncomingInterval, Immediate: true}, c.pollIncoming)
}

// Close stops every loop and releases the media link. It does not notify
// the server; call Hangup first for that.
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	tasks := []*poll.Task{c.incTask, c.outTask}
	link := c.link
	c.link = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, t := range tasks {
		if t != nil {
			t.Stop()
		}
	}
	if link != nil {
		_ = link.Close()
	}
}

// Call places a call to userID and starts watching its outcome.
func (c *Client) Call(ctx context.Context, userID string) error {
	c.mu.Lock()
	if c.ctx == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if !c.state.Idle() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	link, err := c.newLink()
	if err != nil {
		return err
	}
	offer, err := link.CreateOffer(ctx)
	if err != nil {
		_ = link.Close()
		return fmt.Errorf("create offer: %w", err)
	}
	callID, err := c.api.InitiateCall(ctx, userID, offer)
	if err != nil {
		_ = link.Close()
		return err
	}

	c.mu.Lock()
	if !c.state.Idle() {
		// a ring arrived while initiating; withdraw the attempt
		c.mu.Unlock()
		_ = link.Close()
		rctx, cancel := c.requestCtx(ctx)
		defer cancel()
		if err := c.api.CancelCall(rctx, callID); err != nil {
			c.log.Warn("call_cancel_failed", zap.String("call_id", callID), zap.Error(err))
		}
		return ErrBusy
	}
	c.link, c.callID, c.peer = link, callID, userID
	c.setStateLocked(StateCalling, "initiated")
	c.outTask = poll.Start(c.ctx, poll.Options{
		Interval: c.cfg.OutgoingInterval,
		Window:   c.cfg.AnswerWindow,
		OnExpire: func() { c.noAnswer(callID) },
	}, func(ctx context.Context) bool { return c.pollOutgoing(ctx, callID) })
	c.mu.Unlock()
	return nil
}

// Answer accepts the ringing call.
func (c *Client) Answer(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRinging || c.incoming == nil {
		c.mu.Unlock()
		return ErrNotRinging
	}
	in := *c.incoming
	c.answering = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.answering = false
		c.mu.Unlock()
	}()

	link, err := c.newLink()
	if err != nil {
		return err
	}
	answer, err := link.AcceptOffer(ctx, in.Offer)
	if err != nil {
		_ = link.Close()
		c.transition(in.CallID, []State{StateRinging}, StateFailed, "bad offer")
		return fmt.Errorf("accept offer: %w", err)
	}
	if err := c.api.Answer(ctx, in.CallID, answer); err != nil {
		_ = link.Close()
		c.transition(in.CallID, []State{StateRinging}, StateFailed, "answer rejected")
		return err
	}

	c.mu.Lock()
	if c.state != StateRinging || c.callID != in.CallID {
		c.mu.Unlock()
		_ = link.Close()
		return ErrNotRinging
	}
	c.link = link
	c.setStateLocked(StateConnecting, "answered")
	c.mu.Unlock()
	return nil
}

// Decline rejects the ringing call.
func (c *Client) Decline(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRinging || c.incoming == nil {
		c.mu.Unlock()
		return ErrNotRinging
	}
	callID := c.incoming.CallID
	c.mu.Unlock()

	if err := c.api.Decline(ctx, callID); err != nil {
		return err
	}
	c.transition(callID, []State{StateRinging}, StateDeclined, "declined locally")
	return nil
}

// Hangup ends whatever call is live and tells the server. Safe to call in
// any state.
func (c *Client) Hangup(ctx context.Context) error {
	c.mu.Lock()
	callID := c.callID
	live := !c.state.Idle()
	c.mu.Unlock()

	err := c.api.EndCall(ctx)
	if live {
		c.transition(callID, liveStates, StateEnded, "hung up")
	}
	return err
}

func (c *Client) newLink() (media.Transport, error) {
	link, err := c.transport()
	if err != nil {
		return nil, fmt.Errorf("media transport: %w", err)
	}
	link.OnStateChange(func(s media.State) { c.onLinkState(link, s) })
	return link, nil
}

func (c *Client) pollIncoming(ctx context.Context) bool {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if !st.Idle() && st != StateRinging {
		return false
	}

	rctx, cancel := c.requestCtx(ctx)
	defer cancel()
	in, err := c.api.CheckIncoming(rctx)
	if err != nil {
		c.log.Debug("incoming_poll_failed", zap.Error(err))
		return false
	}

	c.mu.Lock()
	var ring *famdto.IncomingCall
	switch {
	case c.state == StateRinging && !c.answering && (in == nil || in.CallID != c.callID):
		c.setStateLocked(StateEnded, "caller went away")
		if in != nil && !c.ringSeen[in.CallID] {
			ring = c.ringLocked(in)
		}
	case c.state.Idle() && in != nil && !c.ringSeen[in.CallID]:
		ring = c.ringLocked(in)
	}
	c.mu.Unlock()

	if ring != nil && c.onRing != nil {
		c.onRing(*ring)
	}
	return false
}

func (c *Client) ringLocked(in *famdto.IncomingCall) *famdto.IncomingCall {
	cp := *in
	c.ringSeen[in.CallID] = true
	c.incoming = &cp
	c.callID = in.CallID
	c.peer = in.CallerID
	c.setStateLocked(StateRinging, "incoming from "+in.CallerID)
	return &cp
}

func (c *Client) pollOutgoing(ctx context.Context, callID string) bool {
	c.mu.Lock()
	if c.callID != callID || c.state != StateCalling {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	rctx, cancel := c.requestCtx(ctx)
	defer cancel()
	st, err := c.api.CallStatus(rctx)
	if err != nil {
		c.log.Debug("outgoing_poll_failed", zap.String("call_id", callID), zap.Error(err))
		return false
	}
	if st.CallID != "" && st.CallID != callID {
		return false
	}

	switch st.Status {
	case famdto.CallPending:
		return false
	case famdto.CallAccepted:
		c.mu.Lock()
		link := c.link
		c.mu.Unlock()
		if link == nil {
			return true
		}
		if err := link.AcceptAnswer(st.Answer); err != nil {
			c.log.Warn("answer_rejected", zap.String("call_id", callID), zap.Error(err))
			c.fail(callID, "bad answer")
			return true
		}
		c.transition(callID, []State{StateCalling}, StateConnecting, "accepted")
	case famdto.CallDeclined:
		c.transition(callID, []State{StateCalling}, StateDeclined, "declined by callee")
	case famdto.CallSuperseded:
		c.transition(callID, []State{StateCalling}, StateSuperseded, "replaced by another caller")
	default:
		c.transition(callID, []State{StateCalling}, StateEnded, "call disappeared")
	}
	return true
}

// noAnswer fires when the answer window closes while still calling.
func (c *Client) noAnswer(callID string) {
	if !c.transition(callID, []State{StateCalling}, StateNoAnswer, "answer window elapsed") {
		return
	}
	ctx, cancel := c.requestCtx(context.Background())
	defer cancel()
	if err := c.api.EndCall(ctx); err != nil {
		c.log.Debug("end_call_failed", zap.String("call_id", callID), zap.Error(err))
	}
}

func (c *Client) fail(callID, reason string) {
	if !c.transition(callID, liveStates, StateFailed, reason) {
		return
	}
	ctx, cancel := c.requestCtx(context.Background())
	defer cancel()
	_ = c.api.EndCall(ctx)
}

func (c *Client) onLinkState(link media.Transport, s media.State) {
	c.mu.Lock()
	if c.link != link {
		c.mu.Unlock()
		return
	}
	callID := c.callID
	c.mu.Unlock()

	switch s {
	case media.StateConnected:
		c.transition(callID, []State{StateConnecting}, StateConnected, "media connected")
	case media.StateFailed:
		c.fail(callID, "media failed")
	case media.StateDisconnected, media.StateClosed:
		c.transition(callID, []State{StateConnected}, StateEnded, "media "+string(s))
	}
}

// transition moves to `to` if the current attempt is callID and the state
// is one of from. Terminal targets release the media link.
func (c *Client) transition(callID string, from []State, to State, reason string) bool {
	c.mu.Lock()
	if c.callID != callID || !contains(from, c.state) {
		c.mu.Unlock()
		return false
	}
	c.setStateLocked(to, reason)
	var link media.Transport
	if to.Terminal() {
		link = c.link
		c.link = nil
	}
	c.mu.Unlock()
	if link != nil {
		if src, ok := link.(media.StatsSource); ok {
			st := src.Stats()
			c.log.Info("call_media_stats", zap.String("call_id", callID),
				zap.Uint64("packets", st.Packets), zap.Uint64("bytes", st.Bytes))
		}
		_ = link.Close()
	}
	return true
}

func (c *Client) setStateLocked(to State, reason string) {
	tr := Transition{From: c.state, To: to, Reason: reason, CallID: c.callID, At: time.Now()}
	c.state = to
	if to.Terminal() {
		c.incoming = nil
	}
	c.log.Info("call_state",
		zap.String("call_id", tr.CallID),
		zap.String("peer", c.peer),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("reason", reason),
	)
	select {
	case c.events <- tr:
	default:
		c.log.Warn("call_event_dropped", zap.String("to", string(to)))
	}
}

func (c *Client) requestCtx(parent context.Context) (context.Context, context.CancelFunc) {
	d := c.cfg.RequestTimeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(parent, d)
}

func contains(set []State, s State) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
