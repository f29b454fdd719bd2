package ffmpeg

import (
	"bufio"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParseProgressTime(t *testing.T) {
	tests := []struct {
		line   string
		want   time.Duration
		wantOK bool
	}{
		{"frame=  100 fps=30 q=23.0 size=512kB time=00:00:03.33 bitrate=1259.1kbits/s speed=1x", 3*time.Second + 330*time.Millisecond, true},
		{"time=01:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"size=N/A time=N/A bitrate=N/A", 0, false},
		{"Stream mapping:", 0, false},
		{"time=00:00:01.00 ... time=00:00:02.50", 2*time.Second + 500*time.Millisecond, true},
	}
	for _, tt := range tests {
		got, ok := ParseProgressTime(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseProgressTime(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPercent(t *testing.T) {
	total := 65 * time.Second
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{-time.Second, 0},
		{13 * time.Second, 20},
		{61 * time.Second, 93},
		{62 * time.Second, 95},
		{65 * time.Second, 95},
		{90 * time.Second, 95},
	}
	for _, tt := range tests {
		if got := Percent(tt.elapsed, total); got != tt.want {
			t.Errorf("Percent(%v, %v) = %d, want %d", tt.elapsed, total, got, tt.want)
		}
	}
	if got := Percent(time.Second, 0); got != 0 {
		t.Errorf("Percent with zero total = %d", got)
	}
}

func TestScanLinesOrCR(t *testing.T) {
	input := "Input #0\nframe=1 time=00:00:01.00\rframe=2 time=00:00:02.00\rdone"
	s := bufio.NewScanner(strings.NewReader(input))
	s.Split(ScanLinesOrCR)

	var got []string
	for s.Scan() {
		got = append(got, s.Text())
	}
	want := []string{"Input #0", "frame=1 time=00:00:01.00", "frame=2 time=00:00:02.00", "done"}
	if !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}
