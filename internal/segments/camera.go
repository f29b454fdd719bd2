package segments

import (
	"fmt"
	"slices"
	"strings"
)

// Camera identifies one of the vehicle's cameras.
type Camera string

// Known cameras.
const (
	Front         Camera = "front"
	LeftPillar    Camera = "left_pillar"
	RightPillar   Camera = "right_pillar"
	LeftRepeater  Camera = "left_repeater"
	RightRepeater Camera = "right_repeater"
	Back          Camera = "back"
)

// CanonicalOrder is the order cameras are resolved, filtered and laid out in.
var CanonicalOrder = []Camera{Front, LeftPillar, RightPillar, LeftRepeater, RightRepeater, Back}

// Mirrored reports whether the camera records a mirror image. Rear-facing
// cameras are flipped so the grid reads like a rear-view mirror.
func (c Camera) Mirrored() bool {
	switch c {
	case Back, LeftRepeater, RightRepeater:
		return true
	default:
		return false
	}
}

// Valid reports whether c is a known camera.
func (c Camera) Valid() bool {
	return slices.Contains(CanonicalOrder, c)
}

// ParseCamera accepts a camera id in any case, with '-' or '_' separators.
func ParseCamera(s string) (Camera, error) {
	c := Camera(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !c.Valid() {
		return "", fmt.Errorf("unknown camera %q", s)
	}
	return c, nil
}

// Ordered returns the selected cameras in canonical order without duplicates.
// Unknown cameras are dropped. An empty selection means all cameras.
func Ordered(selected []Camera) []Camera {
	if len(selected) == 0 {
		return slices.Clone(CanonicalOrder)
	}
	out := make([]Camera, 0, len(selected))
	for _, c := range CanonicalOrder {
		if slices.Contains(selected, c) {
			out = append(out, c)
		}
	}
	return out
}
