package filtergraph

import (
	"github.com/smazurov/sentryexport/internal/ffmpeg"
	"github.com/smazurov/sentryexport/internal/segments"
)

// Declare adds the resolved camera inputs and one black filler per selected
// camera without video to cmd, and returns the grid streams in canonical
// order. Real inputs are declared first, fillers after them.
func Declare(cmd *ffmpeg.Command, selected []segments.Camera, inputs []segments.Input, p Params, durationSec float64) []Stream {
	byCamera := make(map[segments.Camera]int, len(inputs))
	for _, in := range inputs {
		opts := ffmpeg.InputOptions{Seek: in.OffsetSec}
		if in.Concat {
			opts.Format = "concat"
		}
		byCamera[in.Camera] = cmd.Input(in.Path, opts)
	}

	cameras := segments.Ordered(selected)
	streams := make([]Stream, 0, len(cameras))
	for _, cam := range cameras {
		if idx, ok := byCamera[cam]; ok {
			streams = append(streams, Stream{Camera: cam, Input: idx})
			continue
		}
		idx := cmd.Input(BlackSource(p.Width, p.Height, p.FrameRate, durationSec), ffmpeg.InputOptions{Format: "lavfi"})
		streams = append(streams, Stream{Camera: cam, Input: idx, Placeholder: true})
	}
	return streams
}
