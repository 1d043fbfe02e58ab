package events

import (
	"log/slog"
	"sync"
)

// defaultLogCapacity bounds the in-memory event history.
const defaultLogCapacity = 256

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Publisher fans events out to subscribers, keyed by event type, and keeps
// a bounded history for the status endpoint. Subscribing after events were
// published does not replay them.
type Publisher struct {
	logger *slog.Logger

	mu       sync.RWMutex
	typed    map[EventType]map[int]Handler
	all      map[int]Handler
	nextID   int
	log      []Event
	capacity int
}

// NewPublisher creates a publisher with the default history capacity.
func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{
		logger:   logger,
		typed:    make(map[EventType]map[int]Handler),
		all:      make(map[int]Handler),
		capacity: defaultLogCapacity,
	}
}

// Subscribe registers a handler for one event type. The returned function
// unsubscribes it.
func (p *Publisher) Subscribe(eventType EventType, handler Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	handlers, ok := p.typed[eventType]
	if !ok {
		handlers = make(map[int]Handler)
		p.typed[eventType] = handlers
	}
	handlers[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.typed[eventType], id)
	}
}

// SubscribeAll registers a handler for every event type. The returned
// function unsubscribes it.
func (p *Publisher) SubscribeAll(handler Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.all[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.all, id)
	}
}

// Publish delivers an event to the handlers registered for its type and to
// all-events subscribers, and records it in the history. A panicking
// handler is logged and skipped; it never takes down the publishing
// goroutine.
func (p *Publisher) Publish(event Event) {
	p.mu.Lock()
	p.log = append(p.log, event)
	if len(p.log) > p.capacity {
		p.log = p.log[len(p.log)-p.capacity:]
	}
	handlers := make([]Handler, 0, len(p.typed[event.Type])+len(p.all))
	for _, h := range p.typed[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range p.all {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, handler := range handlers {
		p.deliver(handler, event)
	}

	if p.logger != nil {
		p.logger.Debug("Event published", "event_id", event.ID, "type", string(event.Type))
	}
}

func (p *Publisher) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Error("Event handler panicked", "type", string(event.Type), "panic", r)
		}
	}()
	handler(event)
}

// Log returns a copy of the recorded event history, oldest first.
func (p *Publisher) Log() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.log))
	copy(out, p.log)
	return out
}
