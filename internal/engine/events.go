package engine

import "sync"

type EventType int

const (
	EventSoundPlayed EventType = iota
	EventNotePlayed
	EventRest
	EventAmbientStarted
	EventAmbientStopped
)

type Event struct {
	Type  EventType
	Name  string  // discrete sound name, when applicable
	Pitch float64 // Hz, for note events
	Index int     // melody position, for note/rest events
}

type EventHandler func(Event)

// EventBus fans engine notifications out to subscribers. Emission can
// come from the bridge's consumer goroutine, so access is locked;
// handlers must not block.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

func (eb *EventBus) Subscribe(t EventType, fn EventHandler) {
	eb.mu.Lock()
	eb.handlers[t] = append(eb.handlers[t], fn)
	eb.mu.Unlock()
}

func (eb *EventBus) Emit(e Event) {
	eb.mu.RLock()
	handlers := eb.handlers[e.Type]
	eb.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}
