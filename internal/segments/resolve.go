package segments

import (
	"fmt"
	"os"
	"strings"
)

// Input is an encoder-ready source for one camera.
type Input struct {
	Camera    Camera  `json:"camera"`
	Path      string  `json:"path"`
	OffsetSec float64 `json:"offset_sec"`
	Concat    bool    `json:"concat"`
}

// Resolver turns relevant segments into per-camera inputs, writing concat
// manifests into TempDir.
type Resolver struct {
	TempDir string
	// Track is called with every manifest written so the owner can remove it.
	Track func(path string)
}

type cameraFile struct {
	path    string
	startMs int64
}

// Resolve returns one input per selected camera that has at least one file
// on disk, in canonical order. Cameras without files are left out.
func (r *Resolver) Resolve(relevant []Relevant, cameras []Camera, windowStartMs int64) ([]Input, error) {
	var inputs []Input

	for _, cam := range Ordered(cameras) {
		var files []cameraFile
		for _, seg := range relevant {
			path, ok := seg.Files[cam]
			if !ok || path == "" || !fileExists(path) {
				continue
			}
			files = append(files, cameraFile{path: path, startMs: seg.StartMs})
		}

		switch len(files) {
		case 0:
			continue
		case 1:
			inputs = append(inputs, Input{
				Camera:    cam,
				Path:      files[0].path,
				OffsetSec: offsetSec(windowStartMs, files[0].startMs),
			})
		default:
			manifest, err := r.writeManifest(cam, files)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, Input{
				Camera:    cam,
				Path:      manifest,
				OffsetSec: offsetSec(windowStartMs, files[0].startMs),
				Concat:    true,
			})
		}
	}

	if len(inputs) == 0 {
		return nil, ErrNoValidCameraFiles
	}
	return inputs, nil
}

func (r *Resolver) writeManifest(cam Camera, files []cameraFile) (string, error) {
	f, err := os.CreateTemp(r.TempDir, "concat-"+string(cam)+"-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat manifest for %s: %w", cam, err)
	}
	if r.Track != nil {
		r.Track(f.Name())
	}

	var b strings.Builder
	for _, file := range files {
		b.WriteString(ManifestLine(file.path))
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return "", fmt.Errorf("write concat manifest for %s: %w", cam, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close concat manifest for %s: %w", cam, err)
	}
	return f.Name(), nil
}

// ManifestLine formats one concat demuxer entry. Backslashes become forward
// slashes and single quotes are escaped for the quoted form.
func ManifestLine(path string) string {
	p := strings.ReplaceAll(path, `\`, "/")
	p = strings.ReplaceAll(p, "'", `'\''`)
	return "file '" + p + "'\n"
}

func offsetSec(windowStartMs, segStartMs int64) float64 {
	return float64(max(0, windowStartMs-segStartMs)) / 1000
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
