package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/sentryexport/cmd"
	"github.com/smazurov/sentryexport/internal/api"
	"github.com/smazurov/sentryexport/internal/config"
	"github.com/smazurov/sentryexport/internal/logging"
	"github.com/smazurov/sentryexport/internal/metrics/exporters"
	"github.com/smazurov/sentryexport/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *config.Options) {
		// CLI flags win over env, env over the config file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(opts.Logging())
		logger := logging.GetLogger("main")

		var (
			server    *api.Server
			services  *cmd.Services
			statsLoop *exporters.StatsPublisher
			watcher   *config.Watcher[config.Options]
		)

		hooks.OnStart(func() {
			logger.Info("Starting", "version", version.Get().String())

			var err error
			services, err = cmd.BuildServices(opts)
			if err != nil {
				logger.Error("Failed to initialize export services", "error", err)
				os.Exit(1)
			}

			// Probe encoders up front so the first export does not wait on it.
			go services.Selector.Capabilities(context.Background())

			statsLoop = exporters.NewStatsPublisher(services.Bus, 0)
			statsLoop.Start(context.Background())

			watcher = config.NewConfigWatcher(opts.Config, config.Load, logger)
			watcher.OnReload(func(reloaded config.Options) {
				logging.ApplyLevels(reloaded.Logging())
				logger.Info("Config reloaded, log levels applied")
			})
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher disabled", "error", watchErr)
			}

			server = api.NewServer(&api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				CORSOrigin:        opts.CORSOrigin,
				Exports:           services.Exports,
				Encoders:          services.Selector,
				EventBus:          services.Bus,
				PrometheusHandler: promhttp.Handler(),
			})

			if sent, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Warn("Failed to notify systemd", "error", notifyErr)
			} else if sent {
				logger.Debug("Notified systemd of readiness")
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if server != nil {
				if stopErr := server.Stop(ctx); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}
			// Running exports are cancelled so their temp files are removed.
			if services != nil {
				if stopErr := services.Exports.Shutdown(ctx); stopErr != nil {
					logger.Warn("Exports did not stop in time", "error", stopErr)
				}
			}
			if statsLoop != nil {
				statsLoop.Stop()
			}
			if watcher != nil {
				_ = watcher.Stop()
			}
		})
	})

	cli.Root().Use = version.Name
	cli.Root().Version = version.Version
	cli.Root().AddCommand(
		cmd.CreateExportCmd(),
		cmd.CreateEncodersCmd(),
		cmd.CreateMinimapCmd(),
		cmd.CreateVersionCmd(),
	)

	cli.Run()
}
