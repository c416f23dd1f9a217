package edgefsm

import "errors"

// All of these report contract violations by the code driving or defining
// the machine. A machine that returned one of them is failed and must be
// discarded.
var (
	ErrInvalidStateName        = errors.New("invalid state name")
	ErrUnknownState            = errors.New("unknown state")
	ErrUnknownSubstate         = errors.New("unknown sub-state")
	ErrReentrantTransition     = errors.New("transition already queued during entry")
	ErrMissingAllStateListener = errors.New("missing listener for all-state event")
	ErrStaleHandle             = errors.New("stale state handle")
	ErrDisallowedTransition    = errors.New("transition not allowed")
	ErrAlreadyConfigured       = errors.New("transitions already restricted")
	ErrMachineFailed           = errors.New("machine failed")
)
