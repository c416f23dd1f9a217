package edgefsm

// State defines a top-level state and its sub-states
type State struct {
	Name      string
	OnEnter   EntryFunc
	Substates map[string]EntryFunc
}

// StateOption is a functional option for configuring a State
type StateOption func(*State)

// WithSubstate registers a nested sub-state entered as "state.name".
// The sub-state shares whatever its parent's entry logic registered.
func WithSubstate(name string, enter EntryFunc) StateOption {
	return func(s *State) {
		if s.Substates == nil {
			s.Substates = make(map[string]EntryFunc)
		}
		s.Substates[name] = enter
	}
}

// resolve returns the entry logic for a parsed state path
func (s *State) resolve(sub string) (EntryFunc, bool) {
	if sub == "" {
		return s.OnEnter, true
	}
	fn, ok := s.Substates[sub]
	return fn, ok
}
