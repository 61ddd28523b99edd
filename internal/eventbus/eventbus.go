package eventbus

import (
	"log"
	"runtime/debug"
	"sync"

	"gamemon/internal/domain"
)

// Re-export domain types for convenience
type DomainEvent = domain.DomainEvent
type EventType = domain.EventType

// EventHandler is a function that handles domain events
type EventHandler func(DomainEvent)

// EventBus is the interface for the event bus
type EventBus interface {
	Publish(event DomainEvent)
	Subscribe(eventType EventType, handler EventHandler) func()
}

// subscription pairs a handler with the identity its unsubscribe
// function removes it by. Slice positions shift as other subscribers
// leave, so removal must never go by index.
type subscription struct {
	id      uint64
	handler EventHandler
}

// bus is the concrete implementation of EventBus
type bus struct {
	mu        sync.RWMutex
	handlers  map[EventType][]subscription
	nextSubID uint64
	eventChan chan DomainEvent
	wg        sync.WaitGroup
	quit      chan struct{}
}

// New creates a new event bus
func New() EventBus {
	b := &bus{
		handlers:  make(map[EventType][]subscription),
		eventChan: make(chan DomainEvent, 1000),
		quit:      make(chan struct{}),
	}

	// Start the event dispatcher
	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Publish publishes an event to all subscribers
func (b *bus) Publish(event DomainEvent) {
	switch event.Type() {
	case domain.EventSelectionChanged, domain.EventInboundReceived:
		// Too frequent to log
	default:
		log.Printf("EventBus: Publishing event %s", event.Type())
	}

	select {
	case b.eventChan <- event:
	default:
		log.Printf("Event bus channel full, dropping event: %v", event.Type())
	}
}

// Subscribe subscribes to events of a specific type.
// Returns an unsubscribe function.
func (b *bus) Subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// dispatch handles event distribution to subscribers
func (b *bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventChan:
			b.mu.RLock()
			subs := b.handlers[event.Type()]
			subsCopy := make([]subscription, len(subs))
			copy(subsCopy, subs)
			b.mu.RUnlock()

			for _, sub := range subsCopy {
				func(h EventHandler, eventType EventType) {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("Event handler panic for %s: %v\nStack: %s",
								eventType, r, debug.Stack())
						}
					}()
					h(event)
				}(sub.handler, event.Type())
			}

		case <-b.quit:
			for {
				select {
				case <-b.eventChan:
					// Discard event
				default:
					return
				}
			}
		}
	}
}

// NullBus is a no-op implementation of EventBus, useful in tests
type NullBus struct{}

func (n *NullBus) Publish(event DomainEvent) {}
func (n *NullBus) Subscribe(eventType EventType, handler EventHandler) func() {
	return func() {}
}

// RecordingBus captures published events in order, useful in tests
type RecordingBus struct {
	mu     sync.Mutex
	Events []DomainEvent
}

func (r *RecordingBus) Publish(event DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
}

func (r *RecordingBus) Subscribe(eventType EventType, handler EventHandler) func() {
	return func() {}
}

// ByType returns the recorded events of one type.
func (r *RecordingBus) ByType(t EventType) []DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DomainEvent
	for _, e := range r.Events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}
