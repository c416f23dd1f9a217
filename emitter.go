package edgefsm

import "sync"

// Listener receives the arguments passed to Emit
type Listener func(args ...any)

// ListenerID identifies a registered listener for removal
type ListenerID uint64

// EventSource is anything listeners can be attached to and removed from.
// Handle.On accepts any EventSource.
type EventSource interface {
	AddListener(event string, fn Listener) ListenerID
	RemoveListener(event string, id ListenerID)
}

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Emitter is a named-event dispatcher. Registration is safe from any
// goroutine; Emit calls listeners synchronously on the calling goroutine,
// which should be the loop of the machine consuming the events.
type Emitter struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[string][]listenerEntry
}

// NewEmitter creates an empty Emitter
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string][]listenerEntry)}
}

// AddListener attaches fn to event
func (e *Emitter) AddListener(event string, fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[string][]listenerEntry)
	}
	e.nextID++
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: e.nextID, fn: fn})
	return e.nextID
}

// RemoveListener detaches a listener. Unknown ids are ignored.
func (e *Emitter) RemoveListener(event string, id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.listeners[event]
	for i, entry := range entries {
		if entry.id != id {
			continue
		}
		// Copy so an Emit iterating the old slice is unaffected
		next := make([]listenerEntry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		if len(next) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = next
		}
		return
	}
}

// Emit calls every listener registered for event at the time of the call
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	entries := e.listeners[event]
	e.mu.Unlock()

	for _, entry := range entries {
		entry.fn(args...)
	}
}

// ListenerCount returns the number of listeners attached to event
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}
