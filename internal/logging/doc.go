// Package logging provides module-scoped slog loggers with per-module levels.
//
// Initialize once at startup, then fetch a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{"export": "debug"},
//	})
//
//	logger := logging.GetLogger("export").With("job_id", id)
//	logger.Info("Export started", "output", path)
//
// Records go to stdout (text or json) and, when journald is reachable, to the
// systemd journal under the identifier "sentryexport":
//
//	journalctl -t sentryexport MODULE=export
//
// Levels can be changed at runtime with ApplyLevels or SetModuleLevel; the
// config watcher uses this to apply [logging] changes without a restart.
package logging
