package events

import (
	"sync"

	"vantage.ai/dashboard-cache-engine/app/utils/idgen"
)

// Domain event names the cache and warming engine react to.
const (
	EventIDESwitch        = "ide:switch"
	EventProjectChange    = "project:change"
	EventAnalysisComplete = "analysis:complete"
	EventChatNew          = "chat:new"
	EventUserActive       = "user:active"
	EventUserInactive     = "user:inactive"
)

// Payload carries the scope an event applies to plus event-specific extras.
type Payload struct {
	ScopeID string
	Extra   map[string]any
}

type Handler func(Payload)

// EventBus is an in-process named event bus with explicit subscriber maps.
// Handlers are invoked synchronously on the emitting goroutine.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]Handler
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[string]Handler),
	}
}

// On registers a handler for the named event and returns a subscription
// handle usable with Off.
func (b *EventBus) On(event string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := idgen.MustGenerateSecureID("sub", 16)
	if b.subscribers[event] == nil {
		b.subscribers[event] = make(map[string]Handler)
	}
	b.subscribers[event][id] = handler
	return id
}

// Off removes a subscription. Removing an unknown handle is a no-op.
func (b *EventBus) Off(event, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handlers, ok := b.subscribers[event]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subscribers, event)
		}
	}
}

// Emit invokes every handler registered for the event.
func (b *EventBus) Emit(event string, payload Payload) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event]))
	for _, h := range b.subscribers[event] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}
