package events

// Event type constants for kelindar/event.
const (
	TypeExportProgress uint32 = iota + 1
	TypeExportCompleted
	TypeMinimapProgress
	TypeExportStats
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ExportProgressEvent reports job progress. Percentages never decrease for a
// given job.
type ExportProgressEvent struct {
	JobID      string `json:"job_id" example:"6f1c9a0e-6f4b-4d3f-9d0e-1f2a3b4c5d6e" doc:"Export job identifier"`
	Percentage int    `json:"percentage" example:"42" doc:"Progress 0-100"`
	Message    string `json:"message" example:"Encoding 42%" doc:"Human-readable progress message"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ExportProgressEvent.
func (e ExportProgressEvent) Type() uint32 { return TypeExportProgress }

// ExportCompletedEvent is published exactly once per job when it reaches a
// terminal state.
type ExportCompletedEvent struct {
	JobID      string `json:"job_id" doc:"Export job identifier"`
	State      string `json:"state" example:"completed" doc:"Terminal state: completed, failed, cancelled"`
	Success    bool   `json:"success" doc:"Whether the export produced an output file"`
	Message    string `json:"message" example:"Export complete (12 MB)" doc:"Human-readable result"`
	OutputPath string `json:"output_path" example:"/exports/clip.mp4" doc:"Destination file"`
	SizeBytes  int64  `json:"size_bytes,omitempty" doc:"Output size on success"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ExportCompletedEvent.
func (e ExportCompletedEvent) Type() uint32 { return TypeExportCompleted }

// MinimapProgressEvent reports minimap render progress for a job.
type MinimapProgressEvent struct {
	JobID      string `json:"job_id" doc:"Export job identifier"`
	Percentage int    `json:"percentage" example:"50" doc:"Frames rendered, percent"`
	Frame      int    `json:"frame" doc:"Frames written so far"`
	Frames     int    `json:"frames" doc:"Total frames"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for MinimapProgressEvent.
func (e MinimapProgressEvent) Type() uint32 { return TypeMinimapProgress }

// ExportStatsEvent carries encoder throughput for a running job.
type ExportStatsEvent struct {
	EventType string `json:"type"`
	JobID     string `json:"job_id"`
	FPS       string `json:"fps"`
	Speed     string `json:"speed"`
}

// Type returns the event type identifier for ExportStatsEvent.
func (e ExportStatsEvent) Type() uint32 { return TypeExportStats }
