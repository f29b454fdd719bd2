package encoders

import (
	"fmt"
	"strings"
)

// Quality is an export quality tier.
type Quality string

// Quality tiers, lowest first.
const (
	QualityMobile Quality = "mobile"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityMax    Quality = "max"
)

// Qualities lists the tiers in ascending order.
var Qualities = []Quality{QualityMobile, QualityMedium, QualityHigh, QualityMax}

// ParseQuality validates a tier name.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := frontOnlyTargets[q]; !ok {
		return "", fmt.Errorf("unknown quality %q", s)
	}
	return q, nil
}

// Target is the per-cell output size and the crf-like quality parameter.
type Target struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Quality int `json:"quality"`
}

// Front-only exports scale against the front camera's native size;
// multi-camera exports against the side cameras' so nothing is upscaled.
var (
	frontOnlyTargets = map[Quality]Target{
		QualityMobile: {Width: 724, Height: 469, Quality: 28},
		QualityMedium: {Width: 1448, Height: 938, Quality: 26},
		QualityHigh:   {Width: 2172, Height: 1407, Quality: 23},
		QualityMax:    {Width: 2896, Height: 1876, Quality: 20},
	}
	multiCameraTargets = map[Quality]Target{
		QualityMobile: {Width: 484, Height: 314, Quality: 28},
		QualityMedium: {Width: 724, Height: 469, Quality: 26},
		QualityHigh:   {Width: 1086, Height: 704, Quality: 23},
		QualityMax:    {Width: 1448, Height: 938, Quality: 20},
	}
)

// TargetFor returns the cell size and quality for a tier.
func TargetFor(q Quality, frontOnly bool) (Target, error) {
	table := multiCameraTargets
	if frontOnly {
		table = frontOnlyTargets
	}
	t, ok := table[q]
	if !ok {
		return Target{}, fmt.Errorf("unknown quality %q", q)
	}
	return t, nil
}
