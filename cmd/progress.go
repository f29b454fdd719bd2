package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progressReporter shows percent progress as a bar on a terminal and as
// plain lines otherwise.
type progressReporter struct {
	bar  *progressbar.ProgressBar
	out  io.Writer
	last int
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newProgressReporter(desc string, quiet bool) *progressReporter {
	if quiet {
		return &progressReporter{out: io.Discard, last: -10}
	}
	if !isTerminal(os.Stderr) {
		return &progressReporter{out: os.Stderr, last: -10}
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return &progressReporter{bar: bar, out: os.Stderr, last: -10}
}

func (p *progressReporter) Set(percent int, msg string) {
	if p.bar != nil {
		if msg != "" {
			p.bar.Describe(msg)
		}
		_ = p.bar.Set(percent)
		return
	}
	// Plain output only on every tenth percent.
	if percent/10 == p.last/10 {
		return
	}
	p.last = percent
	fmt.Fprintf(p.out, "%3d%% %s\n", percent, msg)
}

func (p *progressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.out)
	}
}
