package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/sentryexport/internal/api/models"
	"github.com/smazurov/sentryexport/internal/logging"
)

// registerLogRoutes registers runtime log level control.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/levels/{module}",
		Summary:     "Set Log Level",
		Description: "Change a module's log level until the next config reload",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.LogLevelInput) (*models.LogLevelResponse, error) {
		level := strings.ToLower(input.Body.Level)
		if !logging.SetModuleLevel(input.Module, level) {
			return nil, huma.Error400BadRequest("Invalid log level " + input.Body.Level)
		}
		s.logger.Info("Log level changed", "module", input.Module, "level", level)
		return &models.LogLevelResponse{
			Body: models.LogLevelData{Module: input.Module, Level: level},
		}, nil
	})
}
