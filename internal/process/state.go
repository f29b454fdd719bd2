package process

import "time"

// State represents the current state of a process.
type State string

// Process states.
const (
	StateIdle     State = "idle"     // Not started
	StateRunning  State = "running"  // Active
	StateStopping State = "stopping" // SIGTERM sent
	StateExited   State = "exited"   // Exited with code 0
	StateError    State = "error"    // Failed to start or exited non-zero
)

// Info contains information about a process.
type Info struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at"`
	ExitCode  int       `json:"exit_code"`
}
