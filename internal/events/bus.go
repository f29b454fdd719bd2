// Package events is the in-process bus that carries export progress and
// completion to the HTTP and CLI front ends.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(ExportProgressEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ExportProgressEvent:
		event.Publish(b.dispatcher, e)
	case ExportCompletedEvent:
		event.Publish(b.dispatcher, e)
	case MinimapProgressEvent:
		event.Publish(b.dispatcher, e)
	case ExportStatsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e ExportCompletedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ExportProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ExportCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MinimapProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ExportStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
