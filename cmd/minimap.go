package cmd

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/smazurov/sentryexport/internal/basemap"
	"github.com/smazurov/sentryexport/internal/config"
	"github.com/smazurov/sentryexport/internal/ffmpeg"
	"github.com/smazurov/sentryexport/internal/geo"
	"github.com/smazurov/sentryexport/internal/logging"
	"github.com/smazurov/sentryexport/internal/minimap"
)

// TrackFile is the on-disk form of a standalone minimap render.
type TrackFile struct {
	Path       []geo.Point      `toml:"path"`
	Timeline   []minimap.Sample `toml:"timeline"`
	StartMs    int64            `toml:"start_ms"`
	DurationMs int64            `toml:"duration_ms"`
	Width      int              `toml:"width"`
	Height     int              `toml:"height"`
}

// ReadTrack loads a track file. Width and height fall back to the minimap
// settings; the duration falls back to the timeline span.
func ReadTrack(path string, opts *config.Options) (TrackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrackFile{}, fmt.Errorf("read track: %w", err)
	}
	var tf TrackFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return TrackFile{}, fmt.Errorf("parse track %s: %w", path, err)
	}
	if len(tf.Path) == 0 {
		return TrackFile{}, geo.ErrEmptyPath
	}
	if tf.Width <= 0 || tf.Height <= 0 {
		tf.Width, tf.Height = opts.MinimapWidth, opts.MinimapHeight
	}
	if tf.DurationMs <= 0 && len(tf.Timeline) > 1 {
		tf.DurationMs = tf.Timeline[len(tf.Timeline)-1].TimeMs - tf.StartMs
	}
	if tf.DurationMs <= 0 {
		return TrackFile{}, errors.New("track has no duration")
	}
	return tf, nil
}

// CreateMinimapCmd creates the minimap command.
func CreateMinimapCmd() *cobra.Command {
	var (
		trackFile  string
		outFile    string
		background string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "minimap",
		Short: "Render a minimap overlay track",
		Long: `Builds the map background for a GPS track and renders the animated overlay ` +
			`as a lossless video with alpha, the same track an export composites in the corner.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(configPath(cmd))
			if err != nil {
				return err
			}
			logging.Initialize(opts.Logging())

			tf, err := ReadTrack(trackFile, opts)
			if err != nil {
				return err
			}
			ffmpegPath, err := ffmpeg.FindBinary(opts.FFmpegPath)
			if err != nil {
				return err
			}
			out, err := filepath.Abs(outFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bg, err := basemap.NewBuilder(TileOptions(opts), nil).Build(ctx, tf.Path, tf.Width, tf.Height)
			if err != nil {
				return err
			}
			if background != "" {
				if err := writePNG(background, bg); err != nil {
					return err
				}
			}

			renderer := minimap.NewRenderer(minimap.Config{
				FFmpegPath:   ffmpegPath,
				FrameRate:    opts.ExportFrameRate,
				LoadTimeout:  config.Duration(opts.MinimapLoadTimeout, minimap.DefaultLoadTimeout),
				FrameTimeout: config.Duration(opts.MinimapFrameTimeout, minimap.DefaultFrameTimeout),
			})
			progress := newProgressReporter("Rendering minimap", quiet)
			err = renderer.Render(ctx, minimap.NewRasterSurface(bg, minimap.DefaultStyle), minimap.Track{
				Path:     tf.Path,
				Timeline: tf.Timeline,
				StartMs:  tf.StartMs,
				Duration: time.Duration(tf.DurationMs) * time.Millisecond,
				Width:    tf.Width,
				Height:   tf.Height,
				Output:   out,
			}, func(percent, done, total int) {
				progress.Set(percent, fmt.Sprintf("frame %d/%d", done, total))
			})
			progress.Finish()
			if err != nil {
				return err
			}

			if info, statErr := os.Stat(out); statErr == nil && !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, zoom %d)\n", out, humanize.Bytes(uint64(info.Size())), bg.Zoom)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&trackFile, "track", "t", "", "Track file (TOML) with path and timeline")
	cmd.Flags().StringVarP(&outFile, "out", "o", "minimap.mov", "Output video")
	cmd.Flags().StringVar(&background, "background", "", "Also write the themed map background as PNG")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	_ = cmd.MarkFlagRequired("track")
	return cmd
}

func writePNG(path string, bg *basemap.Background) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, bg.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
