package edgefsm

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

type registration struct {
	source EventSource
	event  string
	id     ListenerID
}

// Handle is passed to a state's entry logic and scopes every listener and
// timer registered through it to that state's tenure. Leaving the state
// releases them before the next state's entry logic runs.
//
// A handle must not be used after the entry logic it was passed to has
// transitioned away: every method then fails with ErrStaleHandle.
type Handle struct {
	m      *Machine
	state  string
	parent *Handle
	valid  atomic.Bool
	next   string

	restricted bool
	allowed    map[string]struct{}

	listeners  []registration
	timers     []*Timer
	intervals  []*Timer
	immediates []*Timer
}

func newHandle(m *Machine, state string, parent *Handle) *Handle {
	h := &Handle{m: m, state: state, parent: parent}
	h.valid.Store(true)
	return h
}

// State returns the state path the handle was created for
func (h *Handle) State() string {
	return h.state
}

// Valid reports whether the handle still accepts registrations
func (h *Handle) Valid() bool {
	return h.valid.Load()
}

// Machine returns the machine the handle belongs to
func (h *Handle) Machine() *Machine {
	return h.m
}

// Data returns the application data set with WithData
func (h *Handle) Data() any {
	return h.m.data
}

// Logger returns the machine's logger
func (h *Handle) Logger() *slog.Logger {
	return h.m.logger
}

func (h *Handle) check(op string) error {
	if !h.valid.Load() {
		return h.m.fail(fmt.Errorf("%s in state %q: %w", op, h.state, ErrStaleHandle))
	}
	return nil
}

// RestrictTransitions limits Goto to the given targets. It can be called
// once per handle.
func (h *Handle) RestrictTransitions(states ...string) error {
	if err := h.check("restrict transitions"); err != nil {
		return err
	}
	if h.restricted {
		return h.m.fail(fmt.Errorf("state %q: %w", h.state, ErrAlreadyConfigured))
	}
	h.restricted = true
	h.allowed = make(map[string]struct{}, len(states))
	for _, s := range states {
		h.allowed[s] = struct{}{}
	}
	return nil
}

// On attaches fn to event on source until the state is left. fn is
// wrapped with Wrap, so a delivery racing the state's exit is dropped.
func (h *Handle) On(source EventSource, event string, fn Listener) error {
	if err := h.check("listen"); err != nil {
		return err
	}
	id := source.AddListener(event, h.Wrap(fn))
	h.listeners = append(h.listeners, registration{source: source, event: event, id: id})
	h.m.logger.Debug("listener added", "state", h.state, "event", event)
	return nil
}

// Timeout runs fn once after d unless the state is left first
func (h *Handle) Timeout(d time.Duration, fn func()) (*Timer, error) {
	if err := h.check("timeout"); err != nil {
		return nil, err
	}
	t := h.m.loop.AfterFunc(d, fn)
	h.timers = append(h.timers, t)
	h.m.logger.Debug("timer started", "state", h.state, "kind", t.kind, "duration", d)
	return t, nil
}

// Interval runs fn every d until the state is left
func (h *Handle) Interval(d time.Duration, fn func()) (*Timer, error) {
	if err := h.check("interval"); err != nil {
		return nil, err
	}
	t := h.m.loop.Every(d, fn)
	h.intervals = append(h.intervals, t)
	h.m.logger.Debug("timer started", "state", h.state, "kind", t.kind, "duration", d)
	return t, nil
}

// Immediate runs fn on the loop after the current task unless the state
// is left first
func (h *Handle) Immediate(fn func()) (*Timer, error) {
	if err := h.check("immediate"); err != nil {
		return nil, err
	}
	t := h.m.loop.Immediate(fn)
	h.immediates = append(h.immediates, t)
	return t, nil
}

// OnThenGoto transitions to target when event fires on source
func (h *Handle) OnThenGoto(source EventSource, event string, target string) error {
	return h.On(source, event, func(...any) {
		// failures are recorded on the machine
		_ = h.Goto(target)
	})
}

// TimeoutThenGoto transitions to target after d
func (h *Handle) TimeoutThenGoto(d time.Duration, target string) (*Timer, error) {
	return h.Timeout(d, func() {
		_ = h.Goto(target)
	})
}

// Wrap returns a listener that calls fn only while the handle is valid.
// Use it for completions of work started in the state, such as I/O
// results posted back to the loop, that may arrive after the state is left.
func (h *Handle) Wrap(fn Listener) Listener {
	return func(args ...any) {
		if !h.valid.Load() {
			return
		}
		fn(args...)
	}
}

// Goto requests a transition to target and invalidates the handle. When
// called from entry logic the transition runs once the entry logic
// returns; only one such request is allowed per entry.
func (h *Handle) Goto(target string) error {
	if h.next != "" && h.m.inTransition && h.m.pendingNext != "" {
		return h.m.fail(fmt.Errorf("goto %q from %q after goto %q: %w: %w",
			target, h.state, h.next, ErrReentrantTransition, ErrStaleHandle))
	}
	if err := h.check(fmt.Sprintf("goto %q", target)); err != nil {
		return err
	}
	if _, _, err := splitPath(target); err != nil {
		return h.m.fail(err)
	}
	if h.restricted {
		if _, ok := h.allowed[target]; !ok {
			return h.m.fail(fmt.Errorf("%q -> %q: %w", h.state, target, ErrDisallowedTransition))
		}
	}

	h.valid.Store(false)
	h.next = target
	return h.m.requestTransition(target)
}

// Disconnect releases every listener and timer registered through the
// handle, invalidates it and returns its parent, if any
func (h *Handle) Disconnect() *Handle {
	for _, r := range h.listeners {
		r.source.RemoveListener(r.event, r.id)
	}
	for _, group := range [][]*Timer{h.timers, h.intervals, h.immediates} {
		for _, t := range group {
			t.Stop()
		}
	}
	h.m.logger.Debug("handle disconnected",
		"state", h.state,
		"listeners", len(h.listeners),
		"timers", len(h.timers)+len(h.intervals)+len(h.immediates))

	h.listeners = nil
	h.timers = nil
	h.intervals = nil
	h.immediates = nil
	h.valid.Store(false)
	return h.parent
}

// DisconnectAll disconnects the handle and every ancestor
func (h *Handle) DisconnectAll() {
	if parent := h.Disconnect(); parent != nil {
		parent.DisconnectAll()
	}
}

// Reset makes the handle valid again, keeping its registrations
func (h *Handle) Reset() {
	h.valid.Store(true)
	h.next = ""
}
