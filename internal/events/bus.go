package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for import lifecycle broadcasting.
// Delivery is asynchronous; each subscriber sees events of one type in
// publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers. Publishing on a nil bus is a
// no-op so components can run without one.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case ImportStarted:
		event.Publish(b.dispatcher, e)
	case ImportProgress:
		event.Publish(b.dispatcher, e)
	case ImportTrackStarted:
		event.Publish(b.dispatcher, e)
	case ImportWarning:
		event.Publish(b.dispatcher, e)
	case ImportFinished:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for events of type T and returns an
// unsubscribe function.
//
//	unsub := events.Subscribe(bus, func(e events.ImportFinished) { ... })
func Subscribe[T Event](b *Bus, handler func(T)) func() {
	if b == nil || handler == nil {
		return func() {}
	}
	return event.Subscribe(b.dispatcher, handler)
}
