package minimap

import (
	"context"
	"image"

	"github.com/smazurov/sentryexport/internal/geo"
)

// Message is sent to a Surface. Messages are one-way; only RenderAt is
// answered, by a ReadyEvent.
type Message interface {
	message()
}

// SeedPath draws the static route and locks the view.
type SeedPath struct {
	Path []geo.Point
}

// SeedTimeline installs the interpolation table.
type SeedTimeline struct {
	Samples []Sample
}

// RenderAt asks for a frame at AtMs on the timeline.
type RenderAt struct {
	Seq  uint64
	AtMs int64
}

func (SeedPath) message()     {}
func (SeedTimeline) message() {}
func (RenderAt) message()     {}

// ReadyEvent answers RenderAt with the same Seq.
type ReadyEvent struct {
	Seq uint64
	Err error
}

// Surface is an offscreen renderer driven frame by frame. It is a single
// stateful resource: one RenderAt is outstanding at a time.
type Surface interface {
	// Load brings the surface up. It must return when ctx is done.
	Load(ctx context.Context) error
	Send(msg Message) error
	Ready() <-chan ReadyEvent
	// Capture returns a copy of the last rendered frame.
	Capture() (*image.RGBA, error)
	Close() error
}
