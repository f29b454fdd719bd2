package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/sentryexport/internal/config"
	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/segments"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadRequest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "job.toml", `
start_ms = 5000
end_ms = 65000
cameras = ["front", "back"]
quality = "medium"
output = "out/clip.mp4"

[[segments]]
duration_ms = 60000
[segments.files]
front = "/footage/a-front.mp4"
back = "/footage/a-back.mp4"

[[segments]]
[segments.files]
front = "/footage/b-front.mp4"

[minimap]
width = 320
height = 240
path = [{ lat = 37.77, lon = -122.41 }, { lat = 37.78, lon = -122.40 }]
`)

	req, err := ReadRequest(path)
	if err != nil {
		t.Fatalf("ReadRequest() error: %v", err)
	}
	if req.StartMs != 5000 || req.EndMs != 65000 {
		t.Errorf("window = %+v", req.Window)
	}
	if req.Quality != encoders.QualityMedium {
		t.Errorf("quality = %q", req.Quality)
	}
	if len(req.Cameras) != 2 || req.Cameras[1] != segments.Back {
		t.Errorf("cameras = %v", req.Cameras)
	}
	if len(req.Segments) != 2 || req.Segments[0].Files[segments.Back] != "/footage/a-back.mp4" {
		t.Errorf("segments = %+v", req.Segments)
	}
	if req.Segments[1].Duration() != segments.DefaultDurationMs {
		t.Errorf("second segment duration = %d, want default", req.Segments[1].Duration())
	}
	if req.Minimap == nil || req.Minimap.Width != 320 || len(req.Minimap.Path) != 2 {
		t.Errorf("minimap = %+v", req.Minimap)
	}
	if !filepath.IsAbs(req.Output) || !strings.HasSuffix(req.Output, filepath.Join("out", "clip.mp4")) {
		t.Errorf("output = %q, want absolute path next to the request", req.Output)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestReadRequestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadRequest(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}
	bad := writeFile(t, dir, "bad.toml", "start_ms = [")
	if _, err := ReadRequest(bad); err == nil {
		t.Error("malformed TOML should fail")
	}
}

func TestReadTrack(t *testing.T) {
	dir := t.TempDir()
	opts := &config.Options{MinimapWidth: 400, MinimapHeight: 300}

	path := writeFile(t, dir, "track.toml", `
start_ms = 1000
path = [{ lat = 37.77, lon = -122.41 }, { lat = 37.78, lon = -122.40 }]

[[timeline]]
time_ms = 1000
lat = 37.77
lon = -122.41

[[timeline]]
time_ms = 11000
lat = 37.78
lon = -122.40
heading = 45.0
`)
	tf, err := ReadTrack(path, opts)
	if err != nil {
		t.Fatalf("ReadTrack() error: %v", err)
	}
	if tf.Width != 400 || tf.Height != 300 {
		t.Errorf("size = %dx%d, want config default", tf.Width, tf.Height)
	}
	if tf.DurationMs != 10000 {
		t.Errorf("DurationMs = %d, want timeline span 10000", tf.DurationMs)
	}

	empty := writeFile(t, dir, "empty.toml", "duration_ms = 1000\n")
	if _, err := ReadTrack(empty, opts); err == nil {
		t.Error("track without a path should fail")
	}
}

func TestRenderEncoderTable(t *testing.T) {
	caps := encoders.Capabilities{
		Compiled: []string{"libx264", "h264_nvenc", "h264_qsv"},
		Hardware: []string{"h264_nvenc"},
		Failed:   []string{"h264_qsv"},
	}
	out := renderEncoderTable(caps, "h264_nvenc")
	for _, want := range []string{"libx264", "h264_nvenc", "ok *", "failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
