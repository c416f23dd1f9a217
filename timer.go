package edgefsm

import (
	"sync"
	"sync/atomic"
	"time"
)

type timerKind int

const (
	timerOnce timerKind = iota
	timerInterval
	timerImmediate
)

func (k timerKind) String() string {
	switch k {
	case timerInterval:
		return "interval"
	case timerImmediate:
		return "immediate"
	default:
		return "timeout"
	}
}

// Timer is a scheduled callback delivered through a Loop. Stopping a timer
// guarantees its callback will not run afterwards, even if its expiry was
// already queued on the loop.
type Timer struct {
	loop    *Loop
	kind    timerKind
	period  time.Duration
	fn      func()
	stopped atomic.Bool

	mu sync.Mutex
	t  *time.Timer
}

// AfterFunc runs fn on the loop once, after d
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, kind: timerOnce, period: d, fn: fn}
	t.arm(d)
	return t
}

// Every runs fn on the loop every d until stopped
func (l *Loop) Every(d time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, kind: timerInterval, period: d, fn: fn}
	t.arm(d)
	return t
}

// Immediate runs fn on the loop after the current task and everything
// already queued
func (l *Loop) Immediate(fn func()) *Timer {
	t := &Timer{loop: l, kind: timerImmediate, fn: fn}
	l.Post(t.run)
	return t
}

func (t *Timer) arm(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.t == nil {
		t.t = time.AfterFunc(d, func() {
			t.loop.Post(t.run)
		})
		return
	}
	t.t.Reset(d)
}

// run executes on the loop
func (t *Timer) run() {
	if t.stopped.Load() {
		return
	}
	if t.kind != timerInterval {
		t.stopped.Store(true)
	}
	t.fn()
	if t.kind == timerInterval && !t.stopped.Load() {
		t.arm(t.period)
	}
}

// Stop cancels the timer. It reports whether the call stopped a timer that
// had not yet fired (or, for intervals, was still repeating).
func (t *Timer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	t.mu.Lock()
	if t.t != nil {
		t.t.Stop()
	}
	t.mu.Unlock()
	return true
}

// Active reports whether the timer can still fire
func (t *Timer) Active() bool {
	return !t.stopped.Load()
}
