// Package collectors turns encoder diagnostic output into metrics.
package collectors

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/smazurov/sentryexport/internal/metrics"
)

var (
	fpsPattern   = regexp.MustCompile(`fps=\s*([0-9.]+)`)
	speedPattern = regexp.MustCompile(`speed=\s*([0-9.]+)x`)
)

// FFmpegCollector reads ffmpeg's periodic stats line
// ("frame= 120 fps= 36 ... speed=1.2x") for one job.
type FFmpegCollector struct {
	jobID    string
	stopOnce sync.Once
}

// NewFFmpegCollector creates a collector for jobID.
func NewFFmpegCollector(jobID string) *FFmpegCollector {
	return &FFmpegCollector{jobID: jobID}
}

// HandleLine parses a stderr line. Lines without stats are ignored.
func (f *FFmpegCollector) HandleLine(source, line string) {
	if source != "stderr" {
		return
	}
	if m := fpsPattern.FindStringSubmatch(line); m != nil {
		if fps, err := strconv.ParseFloat(m[1], 64); err == nil {
			metrics.SetEncodeFPS(f.jobID, fps)
		}
	}
	if m := speedPattern.FindStringSubmatch(line); m != nil {
		if speed, err := strconv.ParseFloat(m[1], 64); err == nil {
			metrics.SetEncodeSpeed(f.jobID, speed)
		}
	}
}

// Stop removes the job's throughput metrics.
func (f *FFmpegCollector) Stop() {
	f.stopOnce.Do(func() {
		metrics.DeleteEncodeStats(f.jobID)
	})
}
