package minimap

import (
	"errors"
	"fmt"
)

var (
	// ErrSurfaceLoadTimeout is returned when the surface does not finish
	// loading within the load timeout.
	ErrSurfaceLoadTimeout = errors.New("render surface load timed out")
	// ErrFrameTimeout is returned when a frame is not ready in time.
	ErrFrameTimeout = errors.New("frame render timed out")
	// ErrCancelled is returned when the render was cancelled.
	ErrCancelled = errors.New("minimap render cancelled")
	// ErrSurfaceClosed is returned by Send after Close.
	ErrSurfaceClosed = errors.New("render surface closed")
)

// SurfaceLoadError wraps a failure to bring the surface up.
type SurfaceLoadError struct {
	Err error
}

func (e *SurfaceLoadError) Error() string {
	return fmt.Sprintf("render surface load failed: %v", e.Err)
}

func (e *SurfaceLoadError) Unwrap() error { return e.Err }

// EncoderError reports a non-zero exit of the minimap encoder.
type EncoderError struct {
	ExitCode int
	Tail     string
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("minimap encoder exited with code %d: %s", e.ExitCode, e.Tail)
}
