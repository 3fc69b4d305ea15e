package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTracker(15*time.Second, WithClock(clk.Now)), clk
}

func TestHeartbeatMakesUserOnline(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Heartbeat("u1")
	tr.Heartbeat("u2")
	tr.Heartbeat("  ")

	assert.Equal(t, []string{"u1", "u2"}, tr.Online())
	assert.True(t, tr.IsOnline("u1"))
	assert.False(t, tr.IsOnline("u3"))
}

func TestPresenceExpiry(t *testing.T) {
	tr, clk := newTestTracker()
	tr.Heartbeat("u1")

	clk.Advance(14*time.Second + 999*time.Millisecond)
	assert.Contains(t, tr.Online(), "u1")

	clk.Advance(time.Millisecond)
	assert.NotContains(t, tr.Online(), "u1")

	// record survives until the sweep runs
	_, ok := tr.LastSeen("u1")
	assert.True(t, ok)

	clk.Advance(30 * time.Second)
	require.Equal(t, 1, tr.Sweep())
	_, ok = tr.LastSeen("u1")
	assert.False(t, ok)
	assert.Empty(t, tr.Online())
}

func TestHeartbeatRefreshes(t *testing.T) {
	tr, clk := newTestTracker()
	tr.Heartbeat("u1")
	clk.Advance(10 * time.Second)
	tr.Heartbeat("u1")
	clk.Advance(10 * time.Second)

	assert.True(t, tr.IsOnline("u1"))
	assert.Equal(t, 0, tr.Sweep())
}
