// Package filtergraph composes the per-camera normalization chains and the
// grid layout into a single ffmpeg filter_complex expression.
package filtergraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smazurov/sentryexport/internal/ffmpeg"
	"github.com/smazurov/sentryexport/internal/segments"
)

// OutputLabel is the label of the final composed stream.
const OutputLabel = "out"

// OverlayMargin is the minimap's distance from the bottom-right corner.
const OverlayMargin = 24

// ErrNoStreams is returned when there is nothing to compose.
var ErrNoStreams = errors.New("no streams to compose")

// Stream is one grid cell, fed by an ffmpeg input.
type Stream struct {
	Camera segments.Camera
	Input  int
	// Placeholder streams come from a black filler source and are never
	// mirrored.
	Placeholder bool
}

// Params sets the cell size and output frame rate.
type Params struct {
	Width     int
	Height    int
	FrameRate int
	// OverlayInput is the ffmpeg input index of a minimap video, or -1.
	OverlayInput int
}

// Graph is a built filter_complex expression.
type Graph struct {
	Expr   string
	Output string // map argument, e.g. "[out]"
	Cols   int
	Rows   int
}

// Width returns the composed frame width for a cell width.
func (g Graph) Width(cell int) int { return g.Cols * cell }

// Height returns the composed frame height for a cell height.
func (g Graph) Height(cell int) int { return g.Rows * cell }

// Layout returns the grid columns and rows for n streams.
func Layout(n int) (cols, rows int, err error) {
	switch n {
	case 1:
		return 1, 1, nil
	case 2:
		return 2, 1, nil
	case 3:
		return 3, 1, nil
	case 4:
		return 2, 2, nil
	case 5, 6:
		return 3, 2, nil
	default:
		return 0, 0, fmt.Errorf("unsupported stream count %d", n)
	}
}

// Chain returns the normalization chain for one stream:
// constant frame rate, zero-based timestamps, optional mirror, cell scale and
// square pixels.
func Chain(s Stream, p Params, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d:v]fps=%d,setpts=PTS-STARTPTS", s.Input, p.FrameRate)
	if s.Camera.Mirrored() && !s.Placeholder {
		b.WriteString(",hflip")
	}
	fmt.Fprintf(&b, ",scale=%d:%d,setsar=1[%s]", p.Width, p.Height, label)
	return b.String()
}

// BlackSource is the lavfi source used in place of a camera without video.
func BlackSource(width, height, frameRate int, durationSec float64) string {
	return fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", width, height, frameRate, ffmpeg.FormatSeconds(durationSec))
}

// Build composes streams, in the order given, into a grid. A single stream
// is passed through without xstack.
func Build(streams []Stream, p Params) (Graph, error) {
	if len(streams) == 0 {
		return Graph{}, ErrNoStreams
	}
	if p.Width <= 0 || p.Height <= 0 || p.FrameRate <= 0 {
		return Graph{}, fmt.Errorf("invalid cell %dx%d@%d", p.Width, p.Height, p.FrameRate)
	}
	cols, rows, err := Layout(len(streams))
	if err != nil {
		return Graph{}, err
	}

	overlay := p.OverlayInput >= 0
	composed := OutputLabel
	if overlay {
		composed = "grid"
	}

	chains := make([]string, 0, len(streams)+2)
	if len(streams) == 1 {
		chains = append(chains, Chain(streams[0], p, composed))
	} else {
		var pads strings.Builder
		positions := make([]string, len(streams))
		for i, s := range streams {
			label := "v" + strconv.Itoa(i)
			chains = append(chains, Chain(s, p, label))
			pads.WriteString("[" + label + "]")
			col, row := i%cols, i/cols
			positions[i] = strconv.Itoa(col*p.Width) + "_" + strconv.Itoa(row*p.Height)
		}
		chains = append(chains, fmt.Sprintf("%sxstack=inputs=%d:layout=%s:fill=black[%s]",
			pads.String(), len(streams), strings.Join(positions, "|"), composed))
	}

	if overlay {
		chains = append(chains,
			fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS[map]", p.OverlayInput),
			fmt.Sprintf("[grid][map]overlay=W-w-%d:H-h-%d:eof_action=pass[%s]", OverlayMargin, OverlayMargin, OutputLabel))
	}

	return Graph{
		Expr:   strings.Join(chains, ";"),
		Output: "[" + OutputLabel + "]",
		Cols:   cols,
		Rows:   rows,
	}, nil
}
