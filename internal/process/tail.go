package process

import (
	"strings"
	"sync"
)

// Diagnostic tail limits.
const (
	TailBytes = 8 << 10
	TailLines = 20
)

// Tail keeps the last TailBytes of a process's stderr. It implements
// OutputHandler.
type Tail struct {
	mu  sync.Mutex
	buf []byte
}

// HandleLine appends a stderr line.
func (t *Tail) HandleLine(source, line string) {
	if source != "stderr" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - TailBytes; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
}

// String returns at most the last TailLines lines.
func (t *Tail) String() string {
	t.mu.Lock()
	s := strings.TrimRight(string(t.buf), "\n")
	t.mu.Unlock()

	lines := strings.Split(s, "\n")
	if len(lines) > TailLines {
		lines = lines[len(lines)-TailLines:]
	}
	return strings.Join(lines, "\n")
}

// Handlers fans a line out to several handlers; nil entries are skipped.
type Handlers []OutputHandler

// HandleLine implements OutputHandler.
func (hs Handlers) HandleLine(source, line string) {
	for _, h := range hs {
		if h != nil {
			h.HandleLine(source, line)
		}
	}
}
