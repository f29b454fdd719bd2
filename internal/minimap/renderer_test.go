package minimap

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/sentryexport/internal/geo"
)

// fakeEncoder writes a shell script that copies stdin to its last argument.
func fakeEncoder(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script encoder stand-in")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor a; do out=$a; done\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testTrack(t *testing.T, d time.Duration) Track {
	bg := testBackground(40, 30)
	c := center(bg)
	return Track{
		Path:     []geo.Point{c, {Lat: c.Lat + 0.001, Lon: c.Lon}},
		Timeline: []Sample{{TimeMs: 0, Lat: c.Lat, Lon: c.Lon}, {TimeMs: 1000, Lat: c.Lat + 0.001, Lon: c.Lon, Heading: 90}},
		Duration: d,
		Width:    40,
		Height:   30,
		Output:   filepath.Join(t.TempDir(), "minimap.mov"),
	}
}

type progressRecorder struct {
	mu      sync.Mutex
	percent []int
}

func (p *progressRecorder) record(percent, _, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = append(p.percent, percent)
}

func TestEncoderArgs(t *testing.T) {
	r := NewRenderer(Config{})
	args, err := r.EncoderArgs(Track{Width: 400, Height: 300, Output: "/tmp/m.mov"})
	if err != nil {
		t.Fatalf("EncoderArgs() error: %v", err)
	}
	want := []string{
		"-hide_banner", "-y", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgba", "-s", "400x300", "-framerate", "36", "-i", "pipe:0",
		"-c:v", "qtrle", "-pix_fmt", "argb",
		"/tmp/m.mov",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v\nwant %v", args, want)
	}
}

func TestRender(t *testing.T) {
	bin := fakeEncoder(t, `cat > "$out"`)
	track := testTrack(t, 2*time.Second)
	r := NewRenderer(Config{FFmpegPath: bin})

	var rec progressRecorder
	surface := NewRasterSurface(testBackground(40, 30), DefaultStyle)
	if err := r.Render(context.Background(), surface, track, rec.record); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	info, err := os.Stat(track.Output)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	frames := track.Frames(DefaultFrameRate)
	if frames != 72 {
		t.Fatalf("frames = %d, want 72", frames)
	}
	if want := int64(frames * 40 * 30 * 4); info.Size() != want {
		t.Errorf("output size = %d, want %d", info.Size(), want)
	}
	if !slices.Equal(rec.percent, []int{50, 100}) {
		t.Errorf("progress = %v, want [50 100]", rec.percent)
	}
	if err := surface.Send(RenderAt{}); err != ErrSurfaceClosed {
		t.Error("surface should be closed after Render")
	}
}

func TestRenderCancelRemovesOutput(t *testing.T) {
	bin := fakeEncoder(t, `cat > "$out"`)
	track := testTrack(t, 3*time.Second)
	r := NewRenderer(Config{FFmpegPath: bin})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := r.Render(ctx, NewRasterSurface(testBackground(40, 30), DefaultStyle), track, func(int, int, int) {
		cancel()
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Render() error = %v, want ErrCancelled", err)
	}
	if _, statErr := os.Stat(track.Output); !os.IsNotExist(statErr) {
		t.Errorf("partial output left behind: %v", statErr)
	}
}

func TestRenderEncoderFailure(t *testing.T) {
	bin := fakeEncoder(t, `cat > /dev/null; echo "[error] Invalid pixel format" >&2; exit 3`)
	track := testTrack(t, time.Second)
	r := NewRenderer(Config{FFmpegPath: bin})

	err := r.Render(context.Background(), NewRasterSurface(testBackground(40, 30), DefaultStyle), track, nil)
	var encErr *EncoderError
	if !errors.As(err, &encErr) {
		t.Fatalf("Render() error = %v, want *EncoderError", err)
	}
	if encErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", encErr.ExitCode)
	}
}

// stuckSurface never answers RenderAt and can block in Load.
type stuckSurface struct {
	blockLoad bool
	ready     chan ReadyEvent
	closed    bool
}

func (s *stuckSurface) Load(ctx context.Context) error {
	if s.blockLoad {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}
func (s *stuckSurface) Send(Message) error            { return nil }
func (s *stuckSurface) Ready() <-chan ReadyEvent      { return s.ready }
func (s *stuckSurface) Capture() (*image.RGBA, error) { return nil, errors.New("no frame") }
func (s *stuckSurface) Close() error                  { s.closed = true; return nil }

func TestRenderLoadTimeout(t *testing.T) {
	r := NewRenderer(Config{FFmpegPath: "unused", LoadTimeout: 20 * time.Millisecond})
	s := &stuckSurface{blockLoad: true, ready: make(chan ReadyEvent)}

	err := r.Render(context.Background(), s, testTrack(t, time.Second), nil)
	if !errors.Is(err, ErrSurfaceLoadTimeout) {
		t.Fatalf("Render() error = %v, want ErrSurfaceLoadTimeout", err)
	}
	if !s.closed {
		t.Error("surface not closed")
	}
}

func TestRenderFrameTimeout(t *testing.T) {
	bin := fakeEncoder(t, `cat > "$out"`)
	track := testTrack(t, time.Second)
	r := NewRenderer(Config{FFmpegPath: bin, FrameTimeout: 20 * time.Millisecond})
	s := &stuckSurface{ready: make(chan ReadyEvent)}

	err := r.Render(context.Background(), s, track, nil)
	if !errors.Is(err, ErrFrameTimeout) {
		t.Fatalf("Render() error = %v, want ErrFrameTimeout", err)
	}
	if _, statErr := os.Stat(track.Output); !os.IsNotExist(statErr) {
		t.Error("partial output left behind")
	}
}

func TestRenderRejectsEmptyTrack(t *testing.T) {
	r := NewRenderer(Config{})
	if err := r.Render(context.Background(), &stuckSurface{}, Track{Width: 10, Height: 10}, nil); err == nil {
		t.Error("expected error for zero-length track")
	}
}
