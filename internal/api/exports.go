package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/sentryexport/internal/api/models"
	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/export"
	"github.com/smazurov/sentryexport/internal/segments"
)

// toExportRequest converts the API body into an export request.
func toExportRequest(body models.ExportRequestData) (export.Request, error) {
	req := export.Request{
		Window:   segments.Window{StartMs: body.StartMs, EndMs: body.EndMs},
		Segments: body.Segments,
		Mobile:   body.Mobile,
		Output:   body.Output,
	}
	for _, name := range body.Cameras {
		cam, err := segments.ParseCamera(name)
		if err != nil {
			return export.Request{}, err
		}
		req.Cameras = append(req.Cameras, cam)
	}
	if body.Quality != "" {
		q, err := encoders.ParseQuality(body.Quality)
		if err != nil {
			return export.Request{}, err
		}
		req.Quality = q
	}
	if mm := body.Minimap; mm != nil {
		req.Minimap = &export.MinimapRequest{
			Path:             mm.Path,
			Timeline:         mm.Timeline,
			Width:            mm.Width,
			Height:           mm.Height,
			TimelineOffsetMs: mm.TimelineOffsetMs,
		}
	}
	return req, nil
}

// registerExportRoutes registers export job control endpoints
func (s *Server) registerExportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-export",
		Method:        http.MethodPost,
		Path:          "/api/exports",
		Summary:       "Submit Export",
		Description:   "Start an export job. Progress and completion are streamed on /api/exports/events",
		Tags:          []string{"exports"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{400, 401},
	}, func(ctx context.Context, input *models.ExportRequest) (*models.ExportSubmitResponse, error) {
		req, err := toExportRequest(input.Body)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid export request", err)
		}
		id, err := s.exports.Submit(ctx, req)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid export request", err)
		}
		s.logger.Info("Export submitted", "job_id", id, "output", req.Output)
		return &models.ExportSubmitResponse{
			Location: "/api/exports/" + id,
			Body:     models.ExportSubmitData{ID: id},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-exports",
		Method:      http.MethodGet,
		Path:        "/api/exports",
		Summary:     "List Exports",
		Description: "List active and recently finished export jobs",
		Tags:        []string{"exports"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ExportListResponse, error) {
		snaps := s.exports.List()
		data := make([]models.ExportData, len(snaps))
		for i, snap := range snaps {
			data[i] = models.FromSnapshot(snap)
		}
		return &models.ExportListResponse{
			Body: models.ExportListData{Exports: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-export",
		Method:      http.MethodGet,
		Path:        "/api/exports/{id}",
		Summary:     "Get Export",
		Description: "Get the state and progress of an export job",
		Tags:        []string{"exports"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ExportIDInput) (*models.ExportResponse, error) {
		snap, ok := s.exports.Job(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("Export not found")
		}
		return &models.ExportResponse{Body: models.FromSnapshot(snap)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-export",
		Method:      http.MethodDelete,
		Path:        "/api/exports/{id}",
		Summary:     "Cancel Export",
		Description: "Cancel a running export. Finished or unknown jobs return 404",
		Tags:        []string{"exports"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ExportIDInput) (*models.ExportCancelResponse, error) {
		if !s.exports.Cancel(input.ID) {
			return nil, huma.Error404NotFound("Export not active")
		}
		return &models.ExportCancelResponse{
			Body: models.ExportCancelData{ID: input.ID, Cancelled: true},
		}, nil
	})
}
