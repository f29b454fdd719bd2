// Package segments finds the recorded segments that overlap an export window
// and turns them into per-camera encoder inputs.
package segments

import (
	"errors"
	"fmt"
)

// DefaultDurationMs stands in for a segment whose real duration is unknown.
const DefaultDurationMs int64 = 60_000

var (
	// ErrNoSegmentsInRange means the window does not overlap any segment.
	ErrNoSegmentsInRange = errors.New("no segments in range")
	// ErrNoValidCameraFiles means no selected camera has a file on disk.
	ErrNoValidCameraFiles = errors.New("no valid camera files")
)

// Segment is one recorded chunk. Files may be sparse: a camera can be missing
// from any segment.
type Segment struct {
	Files      map[Camera]string `json:"files" toml:"files"`
	DurationMs int64             `json:"duration_ms,omitempty" toml:"duration_ms"`
}

// Duration returns the segment length in milliseconds.
func (s Segment) Duration() int64 {
	if s.DurationMs > 0 {
		return s.DurationMs
	}
	return DefaultDurationMs
}

// Window is a half-open time range [StartMs, EndMs) measured from the start
// of the first segment.
type Window struct {
	StartMs int64 `json:"start_ms" toml:"start_ms"`
	EndMs   int64 `json:"end_ms" toml:"end_ms"`
}

// DurationSec returns the window length in seconds.
func (w Window) DurationSec() float64 {
	return float64(w.EndMs-w.StartMs) / 1000
}

// Validate checks that the window is non-empty and starts at or after zero.
func (w Window) Validate() error {
	if w.StartMs < 0 {
		return fmt.Errorf("window start %dms is negative", w.StartMs)
	}
	if w.EndMs <= w.StartMs {
		return fmt.Errorf("window end %dms is not after start %dms", w.EndMs, w.StartMs)
	}
	return nil
}

// Relevant is a segment that overlaps the window, with its absolute span.
type Relevant struct {
	Segment
	Index   int   `json:"index"`
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// Intersect walks the contiguous segments and returns those whose span
// overlaps w, in input order.
func Intersect(segments []Segment, w Window) ([]Relevant, error) {
	var (
		relevant []Relevant
		offset   int64
	)
	for i, seg := range segments {
		start := offset
		end := start + seg.Duration()
		offset = end

		if start < w.EndMs && end > w.StartMs {
			relevant = append(relevant, Relevant{Segment: seg, Index: i, StartMs: start, EndMs: end})
		}
		if start >= w.EndMs {
			break
		}
	}

	if len(relevant) == 0 {
		return nil, fmt.Errorf("%w: window [%d, %d)ms over %d segments", ErrNoSegmentsInRange, w.StartMs, w.EndMs, len(segments))
	}
	return relevant, nil
}
