package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/smazurov/sentryexport/internal/events"
	"github.com/smazurov/sentryexport/internal/export"
	"github.com/smazurov/sentryexport/internal/logging"
)

// ReadRequest loads an export request from a TOML file. A relative output
// path is resolved against the request file's directory.
func ReadRequest(path string) (export.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return export.Request{}, fmt.Errorf("read request: %w", err)
	}
	var req export.Request
	if err := toml.Unmarshal(data, &req); err != nil {
		return export.Request{}, fmt.Errorf("parse request %s: %w", path, err)
	}
	if req.Output != "" && !filepath.IsAbs(req.Output) {
		abs, err := filepath.Abs(filepath.Join(filepath.Dir(path), req.Output))
		if err != nil {
			return export.Request{}, err
		}
		req.Output = abs
	}
	return req, nil
}

// CreateExportCmd creates the export command.
func CreateExportCmd() *cobra.Command {
	var (
		requestFile string
		output      string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a single export from a request file",
		Long: `Reads an export request (window, segments, cameras, quality and an optional minimap) ` +
			`from a TOML file and encodes it in the foreground. Ctrl-C cancels the export and removes its temp files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(configPath(cmd))
			if err != nil {
				return err
			}
			logging.Initialize(opts.Logging())

			req, err := ReadRequest(requestFile)
			if err != nil {
				return err
			}
			if output != "" {
				if req.Output, err = filepath.Abs(output); err != nil {
					return err
				}
			}

			svc, err := BuildServices(opts)
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), svc, req, quiet)
		},
	}

	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "Export request file (TOML)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Override the request's output path")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func runExport(parent context.Context, svc *Services, req export.Request, quiet bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventCh := make(chan any, 64)
	unsubscribe := events.SubscribeExports(svc.Bus, eventCh, "")
	defer unsubscribe()

	id, err := svc.Exports.Submit(context.Background(), req)
	if err != nil {
		return err
	}

	progress := newProgressReporter("Exporting", quiet)
	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			interrupted = nil
			svc.Exports.Cancel(id)
		case ev := <-eventCh:
			switch e := ev.(type) {
			case events.ExportProgressEvent:
				if e.JobID == id {
					progress.Set(e.Percentage, e.Message)
				}
			case events.ExportCompletedEvent:
				if e.JobID != id {
					continue
				}
				progress.Finish()
				if !quiet {
					fmt.Fprintln(os.Stderr, e.Message)
				}
				switch {
				case e.Success:
					return nil
				case e.State == string(export.StateCancelled):
					return export.ErrCancelled
				default:
					return errors.New(e.Message)
				}
			}
		}
	}
}
