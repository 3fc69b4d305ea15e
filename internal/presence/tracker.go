// Package presence derives online status from heartbeat recency.
// There is no explicit offline signal; a user drops out once their last
// heartbeat is older than the timeout, and Sweep reclaims the record.
package presence

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/famhub/internal/obslog"
	"go.uber.org/zap"
)

type Tracker struct {
	timeout time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	lastSeen map[string]time.Time
}

type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(timeout time.Duration, opts ...Option) *Tracker {
	t := &Tracker{
		timeout:  timeout,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Heartbeat records that userID is alive now. Idempotent.
func (t *Tracker) Heartbeat(userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	now := t.now()
	t.mu.Lock()
	t.lastSeen[userID] = now
	t.mu.Unlock()
}

// IsOnline reports whether userID heartbeat within the timeout.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	seen, ok := t.lastSeen[strings.TrimSpace(userID)]
	t.mu.RUnlock()
	return ok && t.fresh(seen, t.now())
}

// Online returns the sorted ids of every user not yet expired.
func (t *Tracker) Online() []string {
	now := t.now()
	t.mu.RLock()
	out := make([]string, 0, len(t.lastSeen))
	for id, seen := range t.lastSeen {
		if t.fresh(seen, now) {
			out = append(out, id)
		}
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

// LastSeen returns the last heartbeat time, if the record still exists.
func (t *Tracker) LastSeen(userID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen, ok := t.lastSeen[strings.TrimSpace(userID)]
	return seen, ok
}

// Sweep deletes expired records and returns how many were removed.
func (t *Tracker) Sweep() int {
	now := t.now()
	var gone []string
	t.mu.Lock()
	for id, seen := range t.lastSeen {
		if !t.fresh(seen, now) {
			delete(t.lastSeen, id)
			gone = append(gone, id)
		}
	}
	t.mu.Unlock()
	if len(gone) > 0 {
		obslog.L().Debug("presence_sweep", zap.Strings("expired", gone))
	}
	return len(gone)
}

func (t *Tracker) fresh(seen, now time.Time) bool {
	return now.Sub(seen) < t.timeout
}
