package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitInvokesSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []Payload
	bus.On(EventIDESwitch, func(p Payload) { got = append(got, p) })
	bus.On(EventIDESwitch, func(p Payload) { got = append(got, p) })

	bus.Emit(EventIDESwitch, Payload{ScopeID: "9222"})
	assert.Len(t, got, 2)
	assert.Equal(t, "9222", got[0].ScopeID)
}

func TestEmitIgnoresOtherEvents(t *testing.T) {
	bus := NewEventBus()

	called := false
	bus.On(EventChatNew, func(Payload) { called = true })

	bus.Emit(EventIDESwitch, Payload{})
	assert.False(t, called)
}

func TestOffRemovesSubscription(t *testing.T) {
	bus := NewEventBus()

	called := false
	id := bus.On(EventProjectChange, func(Payload) { called = true })
	bus.Off(EventProjectChange, id)
	bus.Off(EventProjectChange, "unknown-handle")

	bus.Emit(EventProjectChange, Payload{ScopeID: "9222"})
	assert.False(t, called)
}
