package api

import (
	"context"
	"net/http"
	"runtime"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/sentryexport/internal/api/models"
	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/encoders/validation"
)

// convertCapabilities lists every compiled H.264 encoder a validator knows,
// marking which ones passed their test encode.
func convertCapabilities(caps encoders.Capabilities, registry *validation.ValidatorRegistry) models.EncoderData {
	data := models.EncoderData{
		FFmpegPath:    caps.FFmpegPath,
		FFmpegVersion: caps.FFmpegVersion,
		Preference:    encoders.PreferenceOrder(runtime.GOOS),
		Encoders:      []models.EncoderInfo{},
		ProbedAt:      caps.ProbedAt,
		Error:         caps.Error,
	}
	for _, v := range registry.GetAllValidators() {
		for _, name := range registry.GetCompiledEncoders(v, caps.Compiled) {
			data.Encoders = append(data.Encoders, models.EncoderInfo{
				Name:        name,
				Description: v.GetDescription(),
				HWAccel:     v.IsHardware(),
				Validated:   !v.IsHardware() || caps.HasHardware(name),
			})
		}
	}
	return data
}

// registerEncoderRoutes registers all encoder-related endpoints
func (s *Server) registerEncoderRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-encoders",
		Method:      http.MethodGet,
		Path:        "/api/encoders",
		Summary:     "List Encoders",
		Description: "Encoder capabilities detected on this machine. The probe runs once per process",
		Tags:        []string{"encoders"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.EncodersResponse, error) {
		if s.encoders == nil {
			return nil, huma.Error503ServiceUnavailable("Encoder detection unavailable")
		}
		caps := s.encoders.Capabilities(ctx)
		return &models.EncodersResponse{Body: convertCapabilities(caps, validation.DefaultRegistry())}, nil
	})
}
