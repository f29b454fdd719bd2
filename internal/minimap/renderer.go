// Package minimap renders the GPS overlay track: a dark basemap with the
// route and a heading-oriented marker, encoded frame by frame into a
// lossless alpha video that the export composes onto the camera grid.
package minimap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/smazurov/sentryexport/internal/ffmpeg"
	"github.com/smazurov/sentryexport/internal/geo"
	"github.com/smazurov/sentryexport/internal/logging"
	"github.com/smazurov/sentryexport/internal/metrics"
	"github.com/smazurov/sentryexport/internal/process"
)

// Defaults for a Renderer.
const (
	DefaultFrameRate    = 36
	DefaultLoadTimeout  = 30 * time.Second
	DefaultFrameTimeout = 5 * time.Second
	// ProgressEvery is the frame interval between progress reports.
	ProgressEvery = 36
)

// Config configures a Renderer.
type Config struct {
	FFmpegPath   string
	FrameRate    int
	LoadTimeout  time.Duration
	FrameTimeout time.Duration
}

// Track is one minimap render.
type Track struct {
	Path     []geo.Point
	Timeline []Sample
	StartMs  int64 // timeline time of the first frame
	Duration time.Duration
	Width    int
	Height   int
	Output   string // .mov
}

// Frames returns the number of frames Track needs at fps.
func (t Track) Frames(fps int) int {
	return int(t.Duration.Seconds() * float64(fps))
}

// ProgressFunc receives floor(100*done/total).
type ProgressFunc func(percent, done, total int)

// Renderer drives a Surface and pipes its frames into an encoder.
type Renderer struct {
	cfg    Config
	logger logging.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(cfg Config) *Renderer {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &Renderer{cfg: cfg, logger: logging.GetLogger("minimap")}
}

// EncoderArgs returns the argv (without the binary) of the frame encoder.
func (r *Renderer) EncoderArgs(t Track) ([]string, error) {
	cmd := ffmpeg.New().Global("-y").Global("-loglevel", "error")
	cmd.Input("pipe:0", ffmpeg.InputOptions{
		Format: "rawvideo",
		Extra: []string{
			"-pix_fmt", "rgba",
			"-s", strconv.Itoa(t.Width) + "x" + strconv.Itoa(t.Height),
			"-framerate", strconv.Itoa(r.cfg.FrameRate),
		},
	})
	cmd.Options("-c:v", "qtrle", "-pix_fmt", "argb").Output(t.Output)
	return cmd.Args()
}

// Render loads surface, seeds it with t and writes every frame to the
// encoder. Frames are requested strictly one after another. ctx is polled
// before each frame; on cancellation the pipe is closed, the encoder is
// terminated and the partial output removed. The surface is always closed.
func (r *Renderer) Render(ctx context.Context, surface Surface, t Track, progress ProgressFunc) (err error) {
	defer surface.Close()

	total := t.Frames(r.cfg.FrameRate)
	if total <= 0 {
		return fmt.Errorf("track has no frames")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("invalid track size %dx%d", t.Width, t.Height)
	}

	if err := r.load(ctx, surface); err != nil {
		return err
	}
	if err := surface.Send(SeedPath{Path: t.Path}); err != nil {
		return &SurfaceLoadError{Err: err}
	}
	if err := surface.Send(SeedTimeline{Samples: t.Timeline}); err != nil {
		return &SurfaceLoadError{Err: err}
	}

	args, err := r.EncoderArgs(t)
	if err != nil {
		return err
	}
	tail := &process.Tail{}
	proc := process.NewProcessWithOutput("minimap", append([]string{r.cfg.FFmpegPath}, args...), r.logger, tail)
	proc.SetLogParser(r.logger, ffmpeg.ParseLogLevel)
	proc.EnableStdin()
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start minimap encoder: %w", err)
	}

	stdin := proc.Stdin()
	defer func() {
		if err == nil {
			return
		}
		_ = stdin.Close()
		_ = proc.Terminate()
		proc.Wait()
		if rmErr := os.Remove(t.Output); rmErr != nil && !os.IsNotExist(rmErr) {
			r.logger.Warn("Failed to remove partial minimap", "path", t.Output, "error", rmErr)
		}
	}()

	r.logger.Info("Rendering minimap", "frames", total, "size", strconv.Itoa(t.Width)+"x"+strconv.Itoa(t.Height))

	frameMs := 1000 / float64(r.cfg.FrameRate)
	reported := 0
	for i := range total {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		at := t.StartMs + int64(float64(i)*frameMs)
		if err := r.frame(ctx, surface, uint64(i+1), at); err != nil {
			return err
		}
		img, err := surface.Capture()
		if err != nil {
			return fmt.Errorf("capture frame %d: %w", i, err)
		}
		if img.Bounds().Dx() != t.Width || img.Bounds().Dy() != t.Height {
			img = scaleFrame(img, t.Width, t.Height)
		}
		if _, err := stdin.Write(img.Pix); err != nil {
			return fmt.Errorf("write frame %d: %w (%s)", i, err, tail.String())
		}

		done := i + 1
		if done%ProgressEvery == 0 || done == total {
			metrics.MinimapFramesWritten(done - reported)
			reported = done
			if progress != nil {
				progress(100*done/total, done, total)
			}
		}
	}

	if err := stdin.Close(); err != nil {
		return fmt.Errorf("close encoder input: %w", err)
	}
	if code := proc.Wait(); code != 0 {
		return &EncoderError{ExitCode: code, Tail: tail.String()}
	}
	r.logger.Info("Minimap rendered", "path", t.Output, "frames", total)
	return nil
}

func (r *Renderer) load(ctx context.Context, surface Surface) error {
	loadCtx, cancel := context.WithTimeout(ctx, r.cfg.LoadTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- surface.Load(loadCtx) }()

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrSurfaceLoadTimeout
		}
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return &SurfaceLoadError{Err: err}
	case <-loadCtx.Done():
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return ErrSurfaceLoadTimeout
	}
}

// frame sends RenderAt and waits for its ReadyEvent. Stale events with an
// older Seq are discarded.
func (r *Renderer) frame(ctx context.Context, surface Surface, seq uint64, atMs int64) error {
	if err := surface.Send(RenderAt{Seq: seq, AtMs: atMs}); err != nil {
		return fmt.Errorf("request frame: %w", err)
	}

	timer := time.NewTimer(r.cfg.FrameTimeout)
	defer timer.Stop()
	for {
		select {
		case ev := <-surface.Ready():
			if ev.Seq != seq {
				continue
			}
			if ev.Err != nil {
				return fmt.Errorf("render frame at %dms: %w", atMs, ev.Err)
			}
			return nil
		case <-timer.C:
			return ErrFrameTimeout
		case <-ctx.Done():
			return ErrCancelled
		}
	}
}
