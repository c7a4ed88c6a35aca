package events

import "sync"

// Handler receives published events.
type Handler func(Event)

// Bus is a minimal synchronous pub/sub fanout. Handlers must be fast; the
// engine publishes inline between actions.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers a typed event to every handler, in subscription order.
func (b *Bus) Publish(e Eventer) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	ev := e.ToEvent()
	for _, h := range handlers {
		h(ev)
	}
}
