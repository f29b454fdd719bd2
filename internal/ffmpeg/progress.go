package ffmpeg

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"time"
)

// MaxRunningPercent caps progress while the encoder is still running. The
// remainder is reported only once the process has exited.
const MaxRunningPercent = 95

var progressTimePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})(?:\.(\d+))?`)

// ParseProgressTime extracts the last time=HH:MM:SS token from a stderr line.
func ParseProgressTime(line string) (time.Duration, bool) {
	matches := progressTimePattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	m := matches[len(matches)-1]

	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])
	d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second

	if frac := m[4]; frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, _ := strconv.Atoi(frac)
		d += time.Duration(n) * time.Duration(math.Pow10(9-len(frac)))
	}
	return d, true
}

// Percent converts elapsed encode time into a running percentage:
// min(95, floor(100 * elapsed / total)).
func Percent(elapsed, total time.Duration) int {
	if total <= 0 || elapsed <= 0 {
		return 0
	}
	p := int(100 * elapsed.Seconds() / total.Seconds())
	return min(p, MaxRunningPercent)
}

// ScanLinesOrCR is a bufio.SplitFunc that splits on '\n' or '\r'. ffmpeg
// rewrites its status line with carriage returns.
func ScanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
