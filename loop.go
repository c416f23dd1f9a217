package edgefsm

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is the single logical thread a machine runs on. Every transition,
// timer expiry and notification flush executes as a task on its queue, one
// at a time, so the machine itself needs no locking.
//
// Run and RunPending must not be used concurrently.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	logger *slog.Logger
}

// LoopOption is a functional option for configuring a Loop
type LoopOption func(*Loop)

// WithLoopLogger sets the logger for the loop
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates an idle loop
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: Logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn to run on the loop after every task queued before it.
// It is safe to call from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued tasks until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop started")
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunPending executes queued tasks on the calling goroutine until the
// queue is empty, including tasks queued by the tasks it runs. It returns
// the number of tasks executed.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
		n++
	}
}

// Pending returns the number of queued tasks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Do runs fn on the loop and waits for it to finish. The loop must be
// running on another goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
