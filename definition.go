package edgefsm

import (
	"fmt"
	"sort"
	"strings"
)

// Definition is the entry-logic dispatch table of a machine class. It is
// configuration shared by every Machine built from it.
type Definition struct {
	class          string
	states         map[string]*State
	initial        string
	allStateEvents []string
}

// NewDefinition creates a new definition builder for the named machine class
func NewDefinition(class string) *Definition {
	return &Definition{
		class:  class,
		states: make(map[string]*State),
	}
}

// State adds a top-level state with its entry logic
func (d *Definition) State(name string, enter EntryFunc, opts ...StateOption) *Definition {
	s := &State{
		Name:    name,
		OnEnter: enter,
	}
	for _, opt := range opts {
		opt(s)
	}
	d.states[name] = s
	return d
}

// Initial sets the state entered when a machine is built
func (d *Definition) Initial(state string) *Definition {
	d.initial = state
	return d
}

// AllStateEvent declares an event every state's entry logic must attach a
// listener for on the machine itself
func (d *Definition) AllStateEvent(event string) *Definition {
	d.allStateEvents = append(d.allStateEvents, event)
	return d
}

// Class returns the machine class name
func (d *Definition) Class() string {
	return d.class
}

// Validate checks the definition for errors
func (d *Definition) Validate() error {
	if d.initial == "" {
		return fmt.Errorf("no initial state defined")
	}

	names := make([]string, 0, len(d.states))
	for name := range d.states {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := d.states[name]
		if err := checkSegment(name); err != nil {
			return err
		}
		if state.OnEnter == nil {
			return fmt.Errorf("state %q has no entry function", name)
		}
		for sub, fn := range state.Substates {
			if err := checkSegment(sub); err != nil {
				return fmt.Errorf("state %q: %w", name, err)
			}
			if fn == nil {
				return fmt.Errorf("sub-state %q has no entry function", name+"."+sub)
			}
		}
	}

	if _, err := d.lookup(d.initial); err != nil {
		return fmt.Errorf("initial state: %w", err)
	}
	return nil
}

func checkSegment(name string) error {
	if name == "" || strings.Contains(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidStateName, name)
	}
	return nil
}

// lookup resolves the entry logic for a state path
func (d *Definition) lookup(state string) (EntryFunc, error) {
	top, sub, err := splitPath(state)
	if err != nil {
		return nil, err
	}
	s, ok := d.states[top]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, top)
	}
	fn, ok := s.resolve(sub)
	if !ok {
		return nil, fmt.Errorf("%w: %q of %q", ErrUnknownSubstate, sub, top)
	}
	return fn, nil
}

// Build creates a Machine from the definition and enters the initial state.
// When the machine shares a loop that is already running, Build must be
// called from that loop.
func (d *Definition) Build(opts ...MachineOption) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}

	m := newMachine(d, opts...)
	if err := m.requestTransition(d.initial); err != nil {
		m.Stop()
		return nil, fmt.Errorf("failed to enter initial state: %w", err)
	}
	return m, nil
}
