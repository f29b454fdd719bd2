package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/sentryexport/internal/api/models"
	"github.com/smazurov/sentryexport/internal/events"
	"github.com/smazurov/sentryexport/internal/export"
)

// registerSSERoutes registers the export event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "export-events",
		Method:      http.MethodGet,
		Path:        "/api/exports/events",
		Summary:     "Export Events",
		Description: "Real-time progress, throughput and completion events for export jobs",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"export-progress":  events.ExportProgressEvent{},
		"export-complete":  events.ExportCompletedEvent{},
		"minimap-progress": events.MinimapProgressEvent{},
		"export-stats":     events.ExportStatsEvent{},
	}, func(ctx context.Context, input *models.ExportEventsInput, send sse.Sender) {
		eventCh := make(chan any, 32)
		unsubscribe := events.SubscribeExports(s.eventBus, eventCh, input.JobID)
		defer unsubscribe()

		// Subscribed first so a completion racing this lookup is still seen.
		if input.JobID != "" && s.exports != nil {
			if snap, ok := s.exports.Job(input.JobID); ok && snap.State.Terminal() {
				_ = send.Data(completionFromSnapshot(snap))
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
				// A job's stream ends with its completion.
				if done, ok := event.(events.ExportCompletedEvent); ok && input.JobID != "" && done.JobID == input.JobID {
					return
				}
			}
		}
	})
}

// completionFromSnapshot replays the completion of a job that finished
// before the stream was opened.
func completionFromSnapshot(snap export.Snapshot) events.ExportCompletedEvent {
	return events.ExportCompletedEvent{
		JobID:      snap.ID,
		State:      string(snap.State),
		Success:    snap.State == export.StateCompleted,
		Message:    snap.Message,
		OutputPath: snap.Output,
		SizeBytes:  snap.SizeBytes,
		Timestamp:  snap.FinishedAt.UTC().Format(time.RFC3339),
	}
}
