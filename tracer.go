package edgefsm

// Tracer observes transitions. TransitionStart is called before any
// resource is released for the transition and TransitionEnd once it is
// over, after the new state's notification was queued or after it failed.
type Tracer interface {
	TransitionStart(class, machineID, from, to string)
	TransitionEnd(class, machineID, from, to string)
}

// FailureTracer is implemented by tracers that want the error of a failed
// transition. TransitionFailed is called before TransitionEnd.
type FailureTracer interface {
	TransitionFailed(class, machineID, from, to string, err error)
}

// NopTracer ignores every transition
type NopTracer struct{}

func (NopTracer) TransitionStart(class, machineID, from, to string) {}
func (NopTracer) TransitionEnd(class, machineID, from, to string)   {}
