package models

import (
	"time"

	"github.com/smazurov/sentryexport/internal/export"
	"github.com/smazurov/sentryexport/internal/geo"
	"github.com/smazurov/sentryexport/internal/minimap"
	"github.com/smazurov/sentryexport/internal/segments"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"OS/architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Encoder models
type EncoderInfo struct {
	Name        string `json:"name" example:"h264_nvenc" doc:"Encoder name"`
	Description string `json:"description" example:"NVIDIA NVENC H.264 encoder" doc:"Human-readable description"`
	HWAccel     bool   `json:"hwaccel" doc:"Whether this is a hardware encoder"`
	Validated   bool   `json:"validated" doc:"Whether a test encode succeeded"`
}

type EncoderData struct {
	FFmpegPath    string        `json:"ffmpeg_path" example:"/usr/bin/ffmpeg" doc:"Encoder binary"`
	FFmpegVersion string        `json:"ffmpeg_version,omitempty" example:"6.1.1" doc:"Encoder binary version"`
	Preference    []string      `json:"preference" doc:"Hardware encoders in preference order for this platform"`
	Encoders      []EncoderInfo `json:"encoders" doc:"Known H.264 encoders"`
	ProbedAt      time.Time     `json:"probed_at" doc:"When capabilities were probed"`
	Error         string        `json:"error,omitempty" doc:"Probe failure; exports fall back to software"`
}

type EncodersResponse struct {
	Body EncoderData
}

// Export models
type MinimapData struct {
	Path             []geo.Point      `json:"path" minItems:"1" doc:"GPS path for the route and map bounds"`
	Timeline         []minimap.Sample `json:"timeline" doc:"Timestamped positions used to place the marker"`
	Width            int              `json:"width,omitempty" minimum:"0" example:"400" doc:"Overlay width in pixels"`
	Height           int              `json:"height,omitempty" minimum:"0" example:"400" doc:"Overlay height in pixels"`
	TimelineOffsetMs int64            `json:"timeline_offset_ms,omitempty" doc:"Timeline time at window start"`
}

type ExportRequestData struct {
	StartMs  int64              `json:"start_ms" minimum:"0" example:"0" doc:"Window start, ms from the first segment"`
	EndMs    int64              `json:"end_ms" example:"65000" doc:"Window end (exclusive)"`
	Segments []segments.Segment `json:"segments" minItems:"1" doc:"Ordered, contiguous segments"`
	Cameras  []string           `json:"cameras,omitempty" example:"[\"front\"]" doc:"Cameras to include; empty selects all"`
	Quality  string             `json:"quality,omitempty" enum:"mobile,medium,high,max" example:"high" doc:"Quality tier"`
	Mobile   bool               `json:"mobile,omitempty" doc:"Force a small software-encoded export"`
	Output   string             `json:"output" example:"/exports/clip.mp4" doc:"Absolute destination path"`
	Minimap  *MinimapData       `json:"minimap,omitempty" doc:"Optional map overlay"`
}

type ExportRequest struct {
	Body ExportRequestData
}

type ExportIDInput struct {
	ID string `path:"id" doc:"Export job identifier"`
}

type ExportData struct {
	ID         string    `json:"id" example:"6f1c9a0e-6f4b-4d3f-9d0e-1f2a3b4c5d6e" doc:"Export job identifier"`
	State      string    `json:"state" example:"running" doc:"pending, running, completed, failed or cancelled"`
	Progress   int       `json:"progress" example:"42" doc:"Progress 0-100"`
	Message    string    `json:"message,omitempty" doc:"Latest progress or result message"`
	Output     string    `json:"output" doc:"Destination path"`
	Encoder    string    `json:"encoder,omitempty" example:"libx264" doc:"Selected encoder"`
	Hardware   bool      `json:"hardware" doc:"Whether the encoder is hardware accelerated"`
	SizeBytes  int64     `json:"size_bytes,omitempty" doc:"Output size on success"`
	CreatedAt  time.Time `json:"created_at" doc:"Submission time"`
	FinishedAt time.Time `json:"finished_at,omitzero" doc:"Terminal state time"`
}

type ExportResponse struct {
	Body ExportData
}

type ExportSubmitData struct {
	ID string `json:"id" doc:"Export job identifier"`
}

type ExportSubmitResponse struct {
	Location string `header:"Location"`
	Body     ExportSubmitData
}

type ExportListData struct {
	Exports []ExportData `json:"exports" doc:"Active and recently finished exports"`
	Count   int          `json:"count" doc:"Number of exports"`
}

type ExportListResponse struct {
	Body ExportListData
}

type ExportCancelData struct {
	ID        string `json:"id" doc:"Export job identifier"`
	Cancelled bool   `json:"cancelled" doc:"Always true; unknown or finished jobs return 404"`
}

type ExportCancelResponse struct {
	Body ExportCancelData
}

type ExportEventsInput struct {
	JobID string `query:"job_id" doc:"Only stream events of this job"`
}

// Log level models
type LogLevelInput struct {
	Module string `path:"module" example:"export" doc:"Logger module"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" doc:"New level"`
	}
}

type LogLevelData struct {
	Module string `json:"module"`
	Level  string `json:"level"`
}

type LogLevelResponse struct {
	Body LogLevelData
}

// FromSnapshot converts a job snapshot to its API form.
func FromSnapshot(s export.Snapshot) ExportData {
	return ExportData{
		ID:         s.ID,
		State:      string(s.State),
		Progress:   s.Progress,
		Message:    s.Message,
		Output:     s.Output,
		Encoder:    s.Encoder,
		Hardware:   s.Hardware,
		SizeBytes:  s.SizeBytes,
		CreatedAt:  s.CreatedAt,
		FinishedAt: s.FinishedAt,
	}
}
