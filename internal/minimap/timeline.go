package minimap

import (
	"math"
	"sort"

	"github.com/smazurov/sentryexport/internal/geo"
)

// Sample is one row of the interpolation table.
type Sample struct {
	TimeMs  int64   `json:"time_ms" toml:"time_ms"`
	Lat     float64 `json:"lat" toml:"lat"`
	Lon     float64 `json:"lon" toml:"lon"`
	Heading float64 `json:"heading" toml:"heading"` // degrees clockwise from north
}

// Timeline interpolates position and heading over time.
type Timeline struct {
	samples []Sample
}

// NewTimeline sorts a copy of samples by time.
func NewTimeline(samples []Sample) *Timeline {
	s := append([]Sample(nil), samples...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].TimeMs < s[j].TimeMs })
	return &Timeline{samples: s}
}

// Len returns the number of samples.
func (tl *Timeline) Len() int { return len(tl.samples) }

// At returns the interpolated position and heading at ms. Times outside the
// table clamp to the first or last sample.
func (tl *Timeline) At(ms int64) (geo.Point, float64, bool) {
	n := len(tl.samples)
	if n == 0 {
		return geo.Point{}, 0, false
	}
	first, last := tl.samples[0], tl.samples[n-1]
	if ms <= first.TimeMs {
		return geo.Point{Lat: first.Lat, Lon: first.Lon}, normalizeHeading(first.Heading), true
	}
	if ms >= last.TimeMs {
		return geo.Point{Lat: last.Lat, Lon: last.Lon}, normalizeHeading(last.Heading), true
	}

	i := sort.Search(n, func(i int) bool { return tl.samples[i].TimeMs > ms })
	a, b := tl.samples[i-1], tl.samples[i]
	f := float64(ms-a.TimeMs) / float64(b.TimeMs-a.TimeMs)

	p := geo.Point{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lon: a.Lon + (b.Lon-a.Lon)*f,
	}
	return p, LerpHeading(a.Heading, b.Heading, f), true
}

// LerpHeading interpolates between two headings along the shorter arc.
func LerpHeading(from, to, f float64) float64 {
	delta := math.Mod(to-from+540, 360) - 180
	return normalizeHeading(from + delta*f)
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
