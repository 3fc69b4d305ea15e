package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish")
	}
}

func TestStopsWhenFuncReportsDone(t *testing.T) {
	var n int32
	task := Start(context.Background(), Options{Interval: 5 * time.Millisecond}, func(context.Context) bool {
		return atomic.AddInt32(&n, 1) == 3
	})
	waitDone(t, task)
	assert.Equal(t, int32(3), atomic.LoadInt32(&n))
}

func TestImmediate(t *testing.T) {
	var n int32
	task := Start(context.Background(), Options{Interval: time.Hour, Immediate: true}, func(context.Context) bool {
		atomic.AddInt32(&n, 1)
		return true
	})
	waitDone(t, task)
	assert.Equal(t, int32(1), atomic.LoadInt32(&n))
}

func TestWindowExpiry(t *testing.T) {
	expired := make(chan struct{})
	task := Start(context.Background(), Options{
		Interval: 5 * time.Millisecond,
		Window:   30 * time.Millisecond,
		OnExpire: func() { close(expired) },
	}, func(context.Context) bool { return false })
	waitDone(t, task)
	select {
	case <-expired:
	default:
		t.Fatal("OnExpire not called")
	}
}

func TestStopIsDeterministic(t *testing.T) {
	var n int32
	task := Start(context.Background(), Options{Interval: time.Millisecond}, func(context.Context) bool {
		atomic.AddInt32(&n, 1)
		return false
	})
	time.Sleep(10 * time.Millisecond)
	task.Stop()
	task.Stop()
	after := atomic.LoadInt32(&n)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, after, atomic.LoadInt32(&n), "no polls after Stop returns")
}

func TestParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Start(ctx, Options{Interval: time.Millisecond}, func(context.Context) bool { return false })
	cancel()
	waitDone(t, task)
}
