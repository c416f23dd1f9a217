package edgefsm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Machine is a running edge-triggered state machine. Its states act only
// on entry, through the Handle their entry logic receives.
//
// A Machine is driven from its Loop: transitions, timer callbacks and
// listener deliveries must all happen there. State, IsInState, History
// and Err are safe to call from any goroutine.
//
// Every error returned by a transition is a contract violation. The
// machine records the first one (see Err) and refuses further
// transitions; it must be discarded.
type Machine struct {
	*Emitter

	definition *Definition
	id         string
	loop       *Loop
	logger     *slog.Logger
	tracer     Tracer
	clock      func() time.Time
	newID      func() string
	data       any

	mu           sync.RWMutex
	currentState string
	history      []HistoryEntry
	err          error

	// Loop-owned
	active           *Handle
	inTransition     bool
	pendingNext      string
	allStateEvents   []string
	pendingEmissions []string
}

// MachineOption is a functional option for configuring a Machine
type MachineOption func(*Machine)

// WithLogger sets the logger for the machine
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithLoop runs the machine on a shared loop instead of a private one
func WithLoop(loop *Loop) MachineOption {
	return func(m *Machine) {
		m.loop = loop
	}
}

// WithIDGenerator sets the source of the machine id
func WithIDGenerator(fn func() string) MachineOption {
	return func(m *Machine) {
		m.newID = fn
	}
}

// WithClock sets the time source used for history timestamps
func WithClock(fn func() time.Time) MachineOption {
	return func(m *Machine) {
		m.clock = fn
	}
}

// WithTracer sets a tracer notified around every transition
func WithTracer(tracer Tracer) MachineOption {
	return func(m *Machine) {
		m.tracer = tracer
	}
}

// WithData sets the application data accessible via Handle.Data
func WithData(data any) MachineOption {
	return func(m *Machine) {
		m.data = data
	}
}

func newMachine(d *Definition, opts ...MachineOption) *Machine {
	m := &Machine{
		Emitter:        NewEmitter(),
		definition:     d,
		logger:         Logger,
		tracer:         NopTracer{},
		clock:          time.Now,
		newID:          uuid.NewString,
		allStateEvents: append([]string(nil), d.allStateEvents...),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.loop == nil {
		m.loop = NewLoop(WithLoopLogger(m.logger))
	}
	m.id = m.newID()
	m.logger = m.logger.With("fsm", d.class, "machine", m.id)
	return m
}

// ID returns the unique machine id
func (m *Machine) ID() string {
	return m.id
}

// Class returns the name of the definition the machine was built from
func (m *Machine) Class() string {
	return m.definition.class
}

// Loop returns the loop the machine runs on
func (m *Machine) Loop() *Loop {
	return m.loop
}

// Run runs the machine's loop until ctx is cancelled
func (m *Machine) Run(ctx context.Context) error {
	return m.loop.Run(ctx)
}

// State returns the current state path
func (m *Machine) State() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// IsInState reports whether the machine is in state or in one of its
// sub-states
func (m *Machine) IsInState(state string) bool {
	current := m.State()
	return current == state || strings.HasPrefix(current, state+".")
}

// History returns the most recently entered states, oldest first
func (m *Machine) History() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HistoryEntry(nil), m.history...)
}

// Err returns the error that failed the machine, or nil
func (m *Machine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// DeclareAllStateEvent requires every state entered from now on to attach
// a listener for event on the machine. Declare before the first transition
// (see Definition.AllStateEvent); states already entered are not checked.
func (m *Machine) DeclareAllStateEvent(event string) {
	m.allStateEvents = append(m.allStateEvents, event)
}

// OnStateChange subscribes fn to the batched state change notifications
func (m *Machine) OnStateChange(fn func(state string)) (unsubscribe func()) {
	id := m.AddListener(EventStateChanged, func(args ...any) {
		if len(args) == 0 {
			return
		}
		if state, ok := args[0].(string); ok {
			fn(state)
		}
	})
	return func() {
		m.RemoveListener(EventStateChanged, id)
	}
}

// Goto requests a transition from outside the machine's states, e.g. from
// host code running on the loop
func (m *Machine) Goto(state string) error {
	return m.requestTransition(state)
}

// Stop releases every listener and timer of the current state chain
func (m *Machine) Stop() {
	if m.active != nil {
		m.active.DisconnectAll()
		m.active = nil
	}
}

func (m *Machine) fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err == nil {
		m.err = err
		m.logger.Error("machine failed", "state", m.currentState, "error", err)
	}
	return err
}

func (m *Machine) requestTransition(state string) error {
	if err := m.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMachineFailed, err)
	}
	if _, _, err := splitPath(state); err != nil {
		return m.fail(err)
	}

	if m.inTransition {
		if m.pendingNext != "" {
			return m.fail(fmt.Errorf("goto %q while %q is queued: %w", state, m.pendingNext, ErrReentrantTransition))
		}
		m.pendingNext = state
		m.logger.Debug("transition queued", "to", state)
		return nil
	}

	for {
		if err := m.transition(state); err != nil {
			return m.fail(err)
		}
		if m.pendingNext == "" {
			return nil
		}
		state, m.pendingNext = m.pendingNext, ""
		if err := m.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrMachineFailed, err)
		}
	}
}

// transition runs one transition synchronously
func (m *Machine) transition(state string) (err error) {
	from := m.State()
	class := m.definition.class

	m.tracer.TransitionStart(class, m.id, from, state)
	defer func() {
		if err != nil {
			if ft, ok := m.tracer.(FailureTracer); ok {
				ft.TransitionFailed(class, m.id, from, state, err)
			}
		}
		m.tracer.TransitionEnd(class, m.id, from, state)
	}()

	enter, err := m.definition.lookup(state)
	if err != nil {
		return err
	}

	kind := classify(from, state)
	m.logger.Debug("executing transition", "from", from, "to", state, "kind", kind)

	var parent *Handle
	switch {
	case m.active == nil:
	case kind == enterSubstate:
		parent = m.active
		parent.Reset()
	case kind == subToSub:
		parent = m.active.Disconnect()
		if parent != nil {
			parent.Reset()
		}
	default:
		m.active.DisconnectAll()
	}

	h := newHandle(m, state, parent)

	m.mu.Lock()
	m.currentState = state
	m.active = h
	m.history = append(m.history, HistoryEntry{State: state, At: m.clock()})
	if len(m.history) > HistoryLimit {
		m.history = append([]HistoryEntry(nil), m.history[len(m.history)-HistoryLimit:]...)
	}
	m.mu.Unlock()

	m.inTransition = true
	err = enter(h)
	m.inTransition = false
	if err != nil {
		return fmt.Errorf("entry of %q failed: %w", state, err)
	}

	for _, event := range m.allStateEvents {
		if m.ListenerCount(event) == 0 {
			return fmt.Errorf("state %q, event %q: %w", state, event, ErrMissingAllStateListener)
		}
	}

	m.enqueueEmission(state)
	return nil
}

func (m *Machine) enqueueEmission(state string) {
	m.pendingEmissions = append(m.pendingEmissions, state)
	if len(m.pendingEmissions) == 1 {
		m.loop.Post(m.flushEmissions)
	}
}

// flushEmissions runs on the loop after the burst that queued it
func (m *Machine) flushEmissions() {
	states := m.pendingEmissions
	m.pendingEmissions = nil
	for _, state := range states {
		m.logger.Debug("state changed", "state", state)
		m.Emit(EventStateChanged, state)
	}
}
