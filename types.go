// Package edgefsm runs edge-triggered (Moore) state machines whose states
// act only on entry. Listeners and timers registered by a state's entry
// logic are released the moment the machine leaves that state.
package edgefsm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// HistoryLimit is the number of most recent states kept by a Machine
const HistoryLimit = 8

// EventStateChanged is emitted by a Machine once per entered state during
// the batched notification flush. Its single argument is the state path.
const EventStateChanged = "stateChanged"

// EntryFunc is the entry logic of a state. It receives the handle scoping
// every listener and timer it registers.
type EntryFunc func(h *Handle) error

// HistoryEntry records a state the machine entered and when
type HistoryEntry struct {
	State string
	At    time.Time
}

// Logger is the default logger used when none is provided
var Logger = slog.Default()

// splitPath splits "top" or "top.sub" into its segments
func splitPath(state string) (top, sub string, err error) {
	if state == "" {
		return "", "", fmt.Errorf("%w: empty state", ErrInvalidStateName)
	}
	parts := strings.Split(state, ".")
	switch len(parts) {
	case 1:
		top = parts[0]
	case 2:
		top, sub = parts[0], parts[1]
		if sub == "" {
			return "", "", fmt.Errorf("%w: %q has an empty sub-state", ErrInvalidStateName, state)
		}
	default:
		return "", "", fmt.Errorf("%w: %q has more than 2 segments", ErrInvalidStateName, state)
	}
	if top == "" {
		return "", "", fmt.Errorf("%w: %q has an empty top-level state", ErrInvalidStateName, state)
	}
	return top, sub, nil
}
