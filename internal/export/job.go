package export

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/process"
)

// State is the lifecycle state of a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Snapshot is a point-in-time copy of a job.
type Snapshot struct {
	ID         string    `json:"id"`
	State      State     `json:"state"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	Output     string    `json:"output"`
	Encoder    string    `json:"encoder,omitempty"`
	Hardware   bool      `json:"hardware"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Job is one export. Progress never decreases and the terminal state is set
// exactly once.
type Job struct {
	ID      string
	Request Request

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	progress   int
	message    string
	choice     *encoders.Choice
	sizeBytes  int64
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	cancelled  bool
	proc       *process.Process
	tempFiles  []string

	cleanupOnce sync.Once
	done        chan struct{}
}

func newJob(parent context.Context, id string, req Request) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		ID:        id,
		Request:   req,
		ctx:       ctx,
		cancel:    cancel,
		state:     StatePending,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:         j.ID,
		State:      j.state,
		Progress:   j.progress,
		Message:    j.message,
		Output:     j.Request.Output,
		SizeBytes:  j.sizeBytes,
		CreatedAt:  j.createdAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
	if j.choice != nil {
		s.Encoder = j.choice.Encoder
		s.Hardware = j.choice.Hardware
	}
	return s
}

func (j *Job) setRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = StateRunning
	j.startedAt = time.Now()
}

func (j *Job) setChoice(c encoders.Choice) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.choice = &c
}

// advance raises progress to p and reports whether it changed. Lower values
// and updates after a terminal state are ignored.
func (j *Job) advance(p int, msg string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() || p <= j.progress {
		return false
	}
	j.progress = min(p, 100)
	if msg != "" {
		j.message = msg
	}
	return true
}

// finish sets the terminal state. It returns false if one was already set.
func (j *Job) finish(state State, msg string, size int64) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return false
	}
	j.state = state
	j.message = msg
	j.sizeBytes = size
	j.finishedAt = time.Now()
	if state == StateCompleted {
		j.progress = 100
	}
	close(j.done)
	return true
}

// markCancelled flags the job and returns the encode process, if any.
func (j *Job) markCancelled() *process.Process {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = true
	return j.proc
}

func (j *Job) isCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// start launches proc unless the job was cancelled first. Cancel and start
// are serialized so a cancel can never miss a freshly spawned process.
func (j *Job) start(proc *process.Process) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelled {
		return ErrCancelled
	}
	j.proc = proc
	return proc.Start()
}

// track registers a temporary path for removal at cleanup.
func (j *Job) track(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tempFiles = append(j.tempFiles, path)
}

// cleanup removes every tracked temporary path. Safe to call more than once.
func (j *Job) cleanup() {
	j.cleanupOnce.Do(func() {
		j.mu.Lock()
		files := j.tempFiles
		j.tempFiles = nil
		j.mu.Unlock()

		// Reverse order so files go before their directories.
		for i := len(files) - 1; i >= 0; i-- {
			_ = os.RemoveAll(files[i])
		}
		j.cancel()
	})
}
