package chartsync

import (
	"sync"

	"codeberg.org/mutker/sensorchart/internal/measurement"
)

// EventType identifies what happened on the origin chart.
type EventType int

const (
	EventTransform EventType = iota
	EventHighlight
	EventReset
)

// Event is published by the chart the user interacted with.
type Event struct {
	Type      EventType
	Origin    measurement.Variant
	Transform Transform
	X         float64
}

// Handler consumes events.
type Handler func(Event)

// Subscription is returned by Subscribe and ends with Unsubscribe.
type Subscription struct {
	bus *Bus
	id  uint64
}

// Unsubscribe stops delivery to the handler. It is safe to call twice.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.id)
	s.bus = nil
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus delivers events to every subscriber in subscription order. Events
// published while a dispatch is running are dropped, so a handler reacting
// to an event can never echo it back.
type Bus struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers []subscriber
	dispatching bool
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subscribers = append(b.subscribers, subscriber{id: b.nextID, handler: h})
	return &Subscription{bus: b, id: b.nextID}
}

// Publish dispatches e synchronously. It reports false when e was dropped
// because another dispatch was in progress.
func (b *Bus) Publish(e Event) bool {
	b.mu.Lock()
	if b.dispatching {
		b.mu.Unlock()
		return false
	}
	b.dispatching = true
	subs := make([]subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.dispatching = false
		b.mu.Unlock()
	}()

	for _, s := range subs {
		s.handler(e)
	}
	return true
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.id == id {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}
