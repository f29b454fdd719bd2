package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/sentryexport/internal/logging"
	"github.com/smazurov/sentryexport/internal/metrics"
)

// HTTPLoggingMiddleware logs each API call and records it in the request
// metrics under its operation ID. Preflights and the event stream's long
// polls log at debug so they don't drown out export traffic.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	operation := "unknown"
	if op := ctx.Operation(); op != nil && op.OperationID != "" {
		operation = op.OperationID
	}

	next(ctx)

	elapsed := time.Since(start)
	status := ctx.Status()
	if status == 0 {
		status = http.StatusOK
	}
	metrics.APIRequest(operation, status, elapsed)

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", ctx.URL().Path),
		slog.String("operation", operation),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if id := ctx.Param("id"); id != "" {
		attrs = append(attrs, slog.String("job_id", id))
	}

	level := slog.LevelInfo
	switch {
	case method == http.MethodOptions, operation == "export-events":
		level = slog.LevelDebug
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}
