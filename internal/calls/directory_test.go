package calls

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/famhub/pkg/famdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestDirectory(t *testing.T, mutate ...func(*Config)) (*Directory, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewDirectory(cfg, WithClock(clk.Now)), clk
}

var offer = []byte(`{"type":"offer","sdp":"v=0"}`)
var answer = []byte(`{"type":"answer","sdp":"v=0"}`)

func TestCreatePendingValidation(t *testing.T) {
	d, _ := newTestDirectory(t)

	_, err := d.CreatePending("alice", "Alice", "alice", offer)
	assert.ErrorIs(t, err, ErrSelfTarget)

	_, err = d.CreatePending("", "", "bob", offer)
	assert.ErrorIs(t, err, ErrInvalidArgs)

	_, err = d.CreatePending("alice", "Alice", "bob", nil)
	assert.ErrorIs(t, err, ErrInvalidArgs)
	assert.Zero(t, d.Len())
}

func TestFullLifecycle(t *testing.T) {
	d, _ := newTestDirectory(t)

	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	assert.Regexp(t, `^call_`, s.ID)
	assert.Equal(t, StatePending, d.OutgoingStatus("alice").State)

	in := d.PendingFor("bob")
	require.NotNil(t, in)
	assert.Equal(t, s.ID, in.ID)
	assert.Equal(t, "Alice", in.CallerName)
	assert.Equal(t, offer, in.Offer)
	assert.Nil(t, d.PendingFor("alice"))

	_, err = d.Accept(s.ID, "bob", answer)
	require.NoError(t, err)
	assert.Nil(t, d.PendingFor("bob"))

	st := d.OutgoingStatus("alice")
	assert.Equal(t, StateAccepted, st.State)
	assert.Equal(t, answer, st.Answer)

	ended := d.End("alice")
	require.Len(t, ended, 1)
	assert.Equal(t, StateEnded, ended[0].State)
	assert.Equal(t, StateNone, d.OutgoingStatus("alice").State)
	assert.Zero(t, d.Len())
}

func TestAcceptIsSingleUse(t *testing.T) {
	d, _ := newTestDirectory(t)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	_, err = d.Accept(s.ID, "carol", answer)
	assert.ErrorIs(t, err, ErrNotFound, "only the addressed callee may accept")

	_, err = d.Accept("call_nope", "bob", answer)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.Accept(s.ID, "bob", answer)
	require.NoError(t, err)

	_, err = d.Accept(s.ID, "bob", answer)
	assert.ErrorIs(t, err, ErrInvalidState)

	var de famdto.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, famdto.CodeInvalidState, de.Code)
}

func TestDeclineGraceWindow(t *testing.T) {
	d, clk := newTestDirectory(t)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	_, err = d.Decline(s.ID, "bob")
	require.NoError(t, err)
	assert.Nil(t, d.PendingFor("bob"))

	clk.Advance(2 * time.Second)
	st := d.OutgoingStatus("alice")
	assert.Equal(t, StateDeclined, st.State)
	assert.Equal(t, s.ID, st.CallID)

	// reported once
	assert.Equal(t, StateNone, d.OutgoingStatus("alice").State)
}

func TestDeclineOutcomeExpires(t *testing.T) {
	d, clk := newTestDirectory(t)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.Decline(s.ID, "bob")
	require.NoError(t, err)

	clk.Advance(6 * time.Second)
	assert.Equal(t, StateNone, d.OutgoingStatus("alice").State)

	_, err = d.Decline(s.ID, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceSupersedesPrevious(t *testing.T) {
	d, _ := newTestDirectory(t)
	first, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	second, err := d.CreatePending("carol", "Carol", "bob", offer)
	require.NoError(t, err)

	got := d.PendingFor("bob")
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 1, d.Len())

	st := d.OutgoingStatus("alice")
	assert.Equal(t, StateSuperseded, st.State)
	assert.Equal(t, first.ID, st.CallID)
	assert.Equal(t, StateNone, d.OutgoingStatus("alice").State)
}

func TestReplaceWithoutNotify(t *testing.T) {
	d, _ := newTestDirectory(t, func(c *Config) { c.NotifySuperseded = false })
	_, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.CreatePending("carol", "Carol", "bob", offer)
	require.NoError(t, err)

	assert.Equal(t, StateNone, d.OutgoingStatus("alice").State)
}

func TestCallerHoldsOneOutgoing(t *testing.T) {
	d, _ := newTestDirectory(t)
	_, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	s2, err := d.CreatePending("alice", "Alice", "carol", offer)
	require.NoError(t, err)

	assert.Nil(t, d.PendingFor("bob"))
	assert.Equal(t, s2.ID, d.OutgoingStatus("alice").CallID)
	assert.Equal(t, 1, d.Len())
}

func TestBusyCallee(t *testing.T) {
	d, _ := newTestDirectory(t)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.Accept(s.ID, "bob", answer)
	require.NoError(t, err)

	_, err = d.CreatePending("carol", "Carol", "bob", offer)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = d.CreatePending("carol", "Carol", "alice", offer)
	assert.ErrorIs(t, err, ErrBusy)

	assert.Equal(t, StateAccepted, d.OutgoingStatus("alice").State)
}

func TestBusyCaller(t *testing.T) {
	d, _ := newTestDirectory(t)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.Accept(s.ID, "bob", answer)
	require.NoError(t, err)

	_, err = d.CreatePending("bob", "Bob", "carol", offer)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = d.CreatePending("alice", "Alice", "carol", offer)
	assert.ErrorIs(t, err, ErrBusy)

	assert.Nil(t, d.PendingFor("carol"))
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, StateAccepted, d.OutgoingStatus("alice").State)
}

func TestAcceptEndsCalleeOutgoing(t *testing.T) {
	d, _ := newTestDirectory(t)
	_, err := d.CreatePending("bob", "Bob", "carol", offer)
	require.NoError(t, err)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	_, err = d.Accept(s.ID, "bob", answer)
	require.NoError(t, err)

	assert.Nil(t, d.PendingFor("carol"))
	assert.Equal(t, StateNone, d.OutgoingStatus("bob").State)
	assert.Equal(t, 1, d.Len())
}

func TestGlareWithoutTiebreakKeepsBoth(t *testing.T) {
	d, _ := newTestDirectory(t)
	_, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.CreatePending("bob", "Bob", "alice", offer)
	require.NoError(t, err)

	assert.NotNil(t, d.PendingFor("alice"))
	assert.NotNil(t, d.PendingFor("bob"))
}

func TestGlareTiebreak(t *testing.T) {
	d, _ := newTestDirectory(t, func(c *Config) { c.GlareTiebreak = true })

	_, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.CreatePending("bob", "Bob", "alice", offer)
	assert.ErrorIs(t, err, ErrGlare, "higher id yields the caller role")
	assert.NotNil(t, d.PendingFor("bob"))

	d.End("alice")
	_, err = d.CreatePending("bob", "Bob", "alice", offer)
	require.NoError(t, err)
	_, err = d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	assert.Nil(t, d.PendingFor("alice"))
	assert.NotNil(t, d.PendingFor("bob"))
	assert.Equal(t, StateSuperseded, d.OutgoingStatus("bob").State)
}

func TestEndIsIdempotent(t *testing.T) {
	d, _ := newTestDirectory(t)
	_, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	assert.Len(t, d.End("bob"), 1)
	assert.Empty(t, d.End("bob"))
	assert.Empty(t, d.End("nobody"))
	assert.Equal(t, StateNone, d.OutgoingStatus("alice").State)
}

func TestEndSessionLeavesOtherSessions(t *testing.T) {
	d, _ := newTestDirectory(t)
	in, err := d.CreatePending("carol", "Carol", "alice", offer)
	require.NoError(t, err)
	out, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	assert.Nil(t, d.EndSession("bob", in.ID), "only participants may end a session")
	ended := d.EndSession("alice", out.ID)
	require.NotNil(t, ended)
	assert.Equal(t, StateEnded, ended.State)

	assert.Nil(t, d.PendingFor("bob"))
	assert.NotNil(t, d.PendingFor("alice"))
	assert.Nil(t, d.EndSession("alice", out.ID))
}

func TestSweep(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	online := map[string]bool{"alice": true, "bob": true, "carol": true, "dave": true}
	var mu sync.Mutex
	d := NewDirectory(DefaultConfig(), WithClock(clk.Now), WithOnline(func(id string) bool {
		mu.Lock()
		defer mu.Unlock()
		return online[id]
	}))

	live, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)
	_, err = d.Accept(live.ID, "bob", answer)
	require.NoError(t, err)
	_, err = d.CreatePending("carol", "Carol", "dave", offer)
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	assert.Zero(t, d.Sweep().Total())

	clk.Advance(15 * time.Second)
	res := d.Sweep()
	assert.Equal(t, 1, res.ExpiredPending)
	assert.Nil(t, d.PendingFor("dave"))

	mu.Lock()
	online["bob"] = false
	mu.Unlock()
	res = d.Sweep()
	assert.Equal(t, 1, res.DroppedAccepted)
	assert.Zero(t, d.Len())
}

func TestConcurrentAcceptLinearizes(t *testing.T) {
	d, _ := newTestDirectory(t)
	s, err := d.CreatePending("alice", "Alice", "bob", offer)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Accept(s.ID, "bob", answer); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
