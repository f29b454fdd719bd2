package minimap

import (
	"math"
	"testing"
)

func TestLerpHeading(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
		f        float64
		want     float64
	}{
		{"straight", 10, 30, 0.5, 20},
		{"wraps through north", 350, 10, 0.5, 0},
		{"wraps backwards", 10, 350, 0.25, 5},
		{"start", 90, 180, 0, 90},
		{"end", 90, 180, 1, 180},
		{"negative input", -90, 0, 0.5, 315},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LerpHeading(tt.from, tt.to, tt.f)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("LerpHeading(%v, %v, %v) = %v, want %v", tt.from, tt.to, tt.f, got, tt.want)
			}
		})
	}
}

func TestTimelineAt(t *testing.T) {
	tl := NewTimeline([]Sample{
		{TimeMs: 2000, Lat: 2, Lon: 20, Heading: 10},
		{TimeMs: 0, Lat: 0, Lon: 0, Heading: 350},
		{TimeMs: 1000, Lat: 1, Lon: 10, Heading: 0},
	})

	tests := []struct {
		ms       int64
		lat, lon float64
		heading  float64
	}{
		{-500, 0, 0, 350},
		{0, 0, 0, 350},
		{500, 0.5, 5, 355},
		{1500, 1.5, 15, 5},
		{2000, 2, 20, 10},
		{9000, 2, 20, 10},
	}
	for _, tt := range tests {
		p, h, ok := tl.At(tt.ms)
		if !ok {
			t.Fatalf("At(%d) not ok", tt.ms)
		}
		if math.Abs(p.Lat-tt.lat) > 1e-9 || math.Abs(p.Lon-tt.lon) > 1e-9 || math.Abs(h-tt.heading) > 1e-9 {
			t.Errorf("At(%d) = %+v %v, want %v,%v %v", tt.ms, p, h, tt.lat, tt.lon, tt.heading)
		}
	}
}

func TestTimelineEmpty(t *testing.T) {
	if _, _, ok := NewTimeline(nil).At(0); ok {
		t.Error("empty timeline should report !ok")
	}
}
