package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/sentryexport/internal/basemap"
	"github.com/smazurov/sentryexport/internal/config"
	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/events"
	"github.com/smazurov/sentryexport/internal/export"
	"github.com/smazurov/sentryexport/internal/ffmpeg"
	"github.com/smazurov/sentryexport/internal/minimap"
)

// Services is the export stack shared by the server and the CLI commands.
type Services struct {
	FFmpegPath string
	Bus        *events.Bus
	Selector   *encoders.Selector
	Exports    *export.Manager
}

// BuildServices resolves the encoder binary and wires the export stack.
func BuildServices(opts *config.Options) (*Services, error) {
	ffmpegPath, err := ffmpeg.FindBinary(opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("locate ffmpeg: %w", err)
	}

	quality := encoders.QualityHigh
	if opts.ExportDefaultQuality != "" {
		if quality, err = encoders.ParseQuality(opts.ExportDefaultQuality); err != nil {
			return nil, err
		}
	}

	bus := events.New()
	selector := encoders.NewSelector(encoders.NewFFmpegProber(ffmpegPath))
	manager := export.NewManager(export.Config{
		FFmpegPath:     ffmpegPath,
		TempDir:        opts.ExportTempDir,
		FrameRate:      opts.ExportFrameRate,
		DefaultQuality: quality,
		MinimapWidth:   opts.MinimapWidth,
		MinimapHeight:  opts.MinimapHeight,
		Tiles:          TileOptions(opts),
		Minimap: minimap.Config{
			LoadTimeout:  config.Duration(opts.MinimapLoadTimeout, minimap.DefaultLoadTimeout),
			FrameTimeout: config.Duration(opts.MinimapFrameTimeout, minimap.DefaultFrameTimeout),
		},
	}, selector, bus)

	return &Services{
		FFmpegPath: ffmpegPath,
		Bus:        bus,
		Selector:   selector,
		Exports:    manager,
	}, nil
}

// TileOptions maps the tiles section onto basemap options.
func TileOptions(opts *config.Options) basemap.Options {
	return basemap.Options{
		URL:       opts.TilesURL,
		UserAgent: opts.TilesUserAgent,
		Timeout:   config.Duration(opts.TilesTimeout, basemap.DefaultTimeout),
		Delay:     time.Duration(opts.TilesDelayMs) * time.Millisecond,
		TempDir:   opts.ExportTempDir,
	}
}

// loadOptions reads defaults, the config file and the environment.
func loadOptions(path string) (*config.Options, error) {
	opts, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

// configPath returns the root --config flag, which subcommands inherit.
func configPath(cmd *cobra.Command) string {
	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		return path
	}
	return "config.toml"
}
