package edgefsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter(t *testing.T) {
	e := NewEmitter()
	var got []any

	id := e.AddListener(evData, func(args ...any) { got = append(got, args...) })
	e.AddListener(evData, func(args ...any) { got = append(got, "second") })
	assert.Equal(t, 2, e.ListenerCount(evData))
	assert.Equal(t, 0, e.ListenerCount(evPoke))

	e.Emit(evData, 1, 2)
	assert.Equal(t, []any{1, 2, "second"}, got)

	e.RemoveListener(evData, id)
	e.RemoveListener(evData, id)
	e.RemoveListener(evPoke, id)
	assert.Equal(t, 1, e.ListenerCount(evData))

	got = nil
	e.Emit(evData, 1)
	assert.Equal(t, []any{"second"}, got)
}

func TestEmitterRemoveDuringEmit(t *testing.T) {
	e := NewEmitter()
	var calls int
	var second ListenerID

	e.AddListener(evData, func(...any) {
		calls++
		e.RemoveListener(evData, second)
	})
	second = e.AddListener(evData, func(...any) { calls++ })

	// The snapshot taken by Emit still holds the removed listener
	e.Emit(evData)
	assert.Equal(t, 2, calls)

	e.Emit(evData)
	assert.Equal(t, 3, calls)
}

func TestEmitterZeroValue(t *testing.T) {
	var e Emitter
	var called bool

	e.AddListener(evData, func(...any) { called = true })
	e.Emit(evData)
	assert.True(t, called)
}
