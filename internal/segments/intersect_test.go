package segments

import (
	"errors"
	"testing"
)

func threeSegments() []Segment {
	return []Segment{
		{Files: map[Camera]string{Front: "a.mp4"}},
		{Files: map[Camera]string{Front: "b.mp4"}},
		{Files: map[Camera]string{Front: "c.mp4"}, DurationMs: 30_000},
	}
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name        string
		window      Window
		wantIndexes []int
		wantErr     error
	}{
		{"inside first", Window{StartMs: 10_000, EndMs: 20_000}, []int{0}, nil},
		{"inside second", Window{StartMs: 61_000, EndMs: 119_000}, []int{1}, nil},
		{"spans all three", Window{StartMs: 59_000, EndMs: 125_000}, []int{0, 1, 2}, nil},
		{"boundary is exclusive", Window{StartMs: 60_000, EndMs: 70_000}, []int{1}, nil},
		{"first two", Window{StartMs: 0, EndMs: 65_000}, []int{0, 1}, nil},
		{"past the end", Window{StartMs: 150_000, EndMs: 160_000}, nil, ErrNoSegmentsInRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Intersect(threeSegments(), tt.window)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantIndexes) {
				t.Fatalf("got %d segments, want %d", len(got), len(tt.wantIndexes))
			}
			for i, r := range got {
				if r.Index != tt.wantIndexes[i] {
					t.Errorf("segment %d index = %d, want %d", i, r.Index, tt.wantIndexes[i])
				}
			}
		})
	}
}

func TestIntersectSpanMatchesDuration(t *testing.T) {
	got, err := Intersect(threeSegments(), Window{StartMs: 125_000, EndMs: 130_000})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d segments, want 1", len(got))
	}
	r := got[0]
	if r.StartMs != 120_000 || r.EndMs != 150_000 {
		t.Errorf("span = [%d, %d), want [120000, 150000)", r.StartMs, r.EndMs)
	}
	if r.StartMs != r.EndMs-r.Duration() {
		t.Errorf("StartMs %d != EndMs - duration (%d)", r.StartMs, r.EndMs-r.Duration())
	}
}

func TestIntersectEmptyInput(t *testing.T) {
	if _, err := Intersect(nil, Window{StartMs: 0, EndMs: 1000}); !errors.Is(err, ErrNoSegmentsInRange) {
		t.Errorf("error = %v, want ErrNoSegmentsInRange", err)
	}
}

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		w       Window
		wantErr bool
	}{
		{Window{StartMs: 0, EndMs: 1}, false},
		{Window{StartMs: 5, EndMs: 5}, true},
		{Window{StartMs: -1, EndMs: 5}, true},
	}
	for _, tt := range tests {
		if err := tt.w.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.w, err, tt.wantErr)
		}
	}
	if d := (Window{StartMs: 0, EndMs: 65_000}).DurationSec(); d != 65 {
		t.Errorf("DurationSec = %v, want 65", d)
	}
}
