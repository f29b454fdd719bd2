package export

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/geo"
	"github.com/smazurov/sentryexport/internal/minimap"
	"github.com/smazurov/sentryexport/internal/segments"
)

// Request describes one export. It is not modified after Submit.
type Request struct {
	segments.Window
	Segments []segments.Segment `json:"segments" toml:"segments"`
	Cameras  []segments.Camera  `json:"cameras,omitempty" toml:"cameras"`
	Quality  encoders.Quality   `json:"quality" toml:"quality"`
	Mobile   bool               `json:"mobile,omitempty" toml:"mobile"`
	Output   string             `json:"output" toml:"output"`
	Minimap  *MinimapRequest    `json:"minimap,omitempty" toml:"minimap"`
}

// MinimapRequest asks for a map overlay in the bottom-right corner.
type MinimapRequest struct {
	Path     []geo.Point      `json:"path" toml:"path"`
	Timeline []minimap.Sample `json:"timeline" toml:"timeline"`
	Width    int              `json:"width,omitempty" toml:"width"`
	Height   int              `json:"height,omitempty" toml:"height"`
	// TimelineOffsetMs is the timeline time at window start.
	TimelineOffsetMs int64 `json:"timeline_offset_ms,omitempty" toml:"timeline_offset_ms"`
}

// SelectedCameras returns the cameras in canonical order.
func (r Request) SelectedCameras() []segments.Camera {
	return segments.Ordered(r.Cameras)
}

// FrontOnly reports whether only the front camera is exported.
func (r Request) FrontOnly() bool {
	cams := r.SelectedCameras()
	return len(cams) == 1 && cams[0] == segments.Front
}

// Validate checks the request before a job is created.
func (r Request) Validate() error {
	if err := r.Window.Validate(); err != nil {
		return err
	}
	if len(r.Segments) == 0 {
		return errors.New("no segments")
	}
	for _, c := range r.Cameras {
		if !c.Valid() {
			return fmt.Errorf("unknown camera %q", c)
		}
	}
	if _, err := encoders.TargetFor(r.Quality, true); err != nil {
		return err
	}
	if r.Output == "" {
		return errors.New("output path is required")
	}
	if !filepath.IsAbs(r.Output) {
		return fmt.Errorf("output path %q must be absolute", r.Output)
	}
	if r.Minimap != nil && len(r.Minimap.Path) == 0 {
		return errors.New("minimap requires a GPS path")
	}
	return nil
}
