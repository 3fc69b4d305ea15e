// Package poll runs a function on a fixed interval until it reports done,
// its window elapses or it is stopped.
package poll

import (
	"context"
	"sync"
	"time"
)

// Func is one poll. Returning true ends the task.
type Func func(ctx context.Context) (done bool)

type Options struct {
	Interval time.Duration
	// Window bounds the task's total lifetime; zero means unbounded.
	Window time.Duration
	// Immediate runs the first poll without waiting one interval.
	Immediate bool
	// OnExpire runs once if Window elapses before fn reports done.
	OnExpire func()
}

type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches the task. Stopping parent stops the task.
func Start(parent context.Context, opts Options, fn Func) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go t.run(ctx, opts, fn)
	return t
}

func (t *Task) run(ctx context.Context, opts Options, fn Func) {
	defer close(t.done)
	defer t.cancel()

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var expire <-chan time.Time
	if opts.Window > 0 {
		timer := time.NewTimer(opts.Window)
		defer timer.Stop()
		expire = timer.C
	}

	if opts.Immediate && fn(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-expire:
			if opts.OnExpire != nil {
				opts.OnExpire()
			}
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if fn(ctx) {
				return
			}
		}
	}
}

// Stop cancels the task and waits for the running poll to return.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed when the task has exited for any reason.
func (t *Task) Done() <-chan struct{} { return t.done }
