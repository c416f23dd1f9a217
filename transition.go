package edgefsm

// transitionKind is how much of the active handle chain survives a transition
type transitionKind int

const (
	// crossState tears down the whole chain
	crossState transitionKind = iota
	// enterSubstate keeps the current handle as the new state's parent
	enterSubstate
	// subToSub drops the sub-state handle and keeps its parent
	subToSub
)

func (k transitionKind) String() string {
	switch k {
	case enterSubstate:
		return "enter-substate"
	case subToSub:
		return "sub-to-sub"
	default:
		return "cross-state"
	}
}

// classify compares the top-level segments of two valid state paths.
// An empty from (no state entered yet) is always crossState.
func classify(from, to string) transitionKind {
	if from == "" {
		return crossState
	}
	fromTop, fromSub, _ := splitPath(from)
	toTop, toSub, _ := splitPath(to)

	if fromTop != toTop || toSub == "" {
		return crossState
	}
	if fromSub == "" {
		return enterSubstate
	}
	return subToSub
}
