package export

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is the terminal error of a cancelled job. It is reported
	// as a cancellation, never as a failure.
	ErrCancelled = errors.New("export cancelled")
	// ErrOutputLocked means another job is writing the same output path.
	ErrOutputLocked = errors.New("output is locked by another export")
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("export job not found")
)

// EncodeError reports a non-zero exit of the encode process.
type EncodeError struct {
	ExitCode int
	Tail     string // last lines of the diagnostic stream
}

func (e *EncodeError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("encoder exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("encoder exited with code %d: %s", e.ExitCode, e.Tail)
}

// SpawnError reports that the encode process could not be started.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start encoder: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
