package events

import (
	"time"

	"github.com/kelindar/event"
)

// completionWait bounds how long a completion event waits for a full channel.
const completionWait = time.Second

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeExports forwards every export-related event to ch. Events for
// other jobs are filtered out when jobID is non-empty.
func SubscribeExports(bus *Bus, ch chan<- any, jobID string) func() {
	forward := func(id string, e Event) {
		if jobID != "" && id != jobID {
			return
		}
		select {
		case ch <- e:
		default:
		}
	}

	unsubs := []func(){
		event.Subscribe(bus.dispatcher, func(e ExportProgressEvent) { forward(e.JobID, e) }),
		event.Subscribe(bus.dispatcher, func(e MinimapProgressEvent) { forward(e.JobID, e) }),
		event.Subscribe(bus.dispatcher, func(e ExportStatsEvent) { forward(e.JobID, e) }),
		// Completion waits for a slow reader instead of being dropped.
		event.Subscribe(bus.dispatcher, func(e ExportCompletedEvent) {
			if jobID != "" && e.JobID != jobID {
				return
			}
			timer := time.NewTimer(completionWait)
			defer timer.Stop()
			select {
			case ch <- e:
			case <-timer.C:
			}
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
