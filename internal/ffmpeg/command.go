// Package ffmpeg builds and validates ffmpeg argument vectors and parses the
// diagnostic text ffmpeg writes to stderr.
package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCommand is wrapped by every validation failure.
var ErrInvalidCommand = errors.New("invalid ffmpeg command")

// ArgKind classifies a token in a Command.
type ArgKind int

// Token kinds, in the order they may appear.
const (
	ArgGlobal ArgKind = iota
	ArgInputOption
	ArgInput
	ArgFilterGraph
	ArgMap
	ArgOutputOption
	ArgOutput
)

func (k ArgKind) String() string {
	switch k {
	case ArgGlobal:
		return "global"
	case ArgInputOption:
		return "input-option"
	case ArgInput:
		return "input"
	case ArgFilterGraph:
		return "filter-graph"
	case ArgMap:
		return "map"
	case ArgOutputOption:
		return "output-option"
	case ArgOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Arg is one flag with an optional value.
type Arg struct {
	Kind  ArgKind
	Flag  string
	Value string
}

// InputOptions are the per-input flags placed before -i.
type InputOptions struct {
	// Format forces the demuxer (-f), e.g. "concat", "lavfi", "rawvideo".
	Format string
	// Seek is passed as -ss when positive.
	Seek float64
	// Extra holds flag/value pairs placed before -i.
	Extra []string
}

// Command is an ordered list of typed ffmpeg arguments. Build it with the
// methods below, then call Args to validate and flatten it.
type Command struct {
	args   []Arg
	inputs int
	err    error
}

// New returns a command that starts with -hide_banner.
func New() *Command {
	c := &Command{}
	c.args = append(c.args, Arg{Kind: ArgGlobal, Flag: "-hide_banner"})
	return c
}

// Global appends flag (and optional value) to the global section.
func (c *Command) Global(flag string, value ...string) *Command {
	return c.add(Arg{Kind: ArgGlobal, Flag: flag, Value: first(value)})
}

// Input appends an input declaration and returns its stream index.
func (c *Command) Input(source string, opts InputOptions) int {
	if source == "" {
		c.fail("empty input source")
	}
	if len(opts.Extra)%2 != 0 {
		c.fail("odd number of extra input arguments for %q", source)
	}

	if opts.Format != "" {
		c.add(Arg{Kind: ArgInputOption, Flag: "-f", Value: opts.Format})
	}
	if opts.Format == "concat" {
		c.add(Arg{Kind: ArgInputOption, Flag: "-safe", Value: "0"})
	}
	for i := 0; i+1 < len(opts.Extra); i += 2 {
		c.add(Arg{Kind: ArgInputOption, Flag: opts.Extra[i], Value: opts.Extra[i+1]})
	}
	if opts.Seek > 0 {
		c.add(Arg{Kind: ArgInputOption, Flag: "-ss", Value: FormatSeconds(opts.Seek)})
	}
	c.add(Arg{Kind: ArgInput, Flag: "-i", Value: source})

	idx := c.inputs
	c.inputs++
	return idx
}

// FilterComplex sets the filter graph.
func (c *Command) FilterComplex(graph string) *Command {
	return c.add(Arg{Kind: ArgFilterGraph, Flag: "-filter_complex", Value: graph})
}

// Map selects an output stream, either "[label]" or "N:v".
func (c *Command) Map(stream string) *Command {
	return c.add(Arg{Kind: ArgMap, Flag: "-map", Value: stream})
}

// Option appends an output option.
func (c *Command) Option(flag string, value ...string) *Command {
	return c.add(Arg{Kind: ArgOutputOption, Flag: flag, Value: first(value)})
}

// Options appends flag/value pairs as output options.
func (c *Command) Options(pairs ...string) *Command {
	if len(pairs)%2 != 0 {
		c.fail("odd number of output option arguments")
		return c
	}
	for i := 0; i < len(pairs); i += 2 {
		c.Option(pairs[i], pairs[i+1])
	}
	return c
}

// Output sets the destination. It must be the last token.
func (c *Command) Output(path string) *Command {
	return c.add(Arg{Kind: ArgOutput, Value: path})
}

// Tokens returns a copy of the typed arguments.
func (c *Command) Tokens() []Arg {
	out := make([]Arg, len(c.args))
	copy(out, c.args)
	return out
}

func (c *Command) add(a Arg) *Command {
	if n := len(c.args); n > 0 && c.args[n-1].Kind == ArgOutput {
		c.fail("argument %s %q after output", a.Flag, a.Value)
	}
	c.args = append(c.args, a)
	return c
}

func (c *Command) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf("%w: %s", ErrInvalidCommand, fmt.Sprintf(format, args...))
	}
}

var (
	inputRefPattern    = regexp.MustCompile(`\[(\d+):[vau]\]`)
	labelPattern       = regexp.MustCompile(`\[([A-Za-z_][A-Za-z0-9_]*)\]`)
	trailingLabelsExpr = regexp.MustCompile(`(\[[A-Za-z_][A-Za-z0-9_]*\])+$`)
)

// Validate checks ordering, input references and filter graph labels.
func (c *Command) Validate() error {
	if c.err != nil {
		return c.err
	}
	if c.inputs == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidCommand)
	}

	var (
		graph   string
		outputs int
		maps    []string
	)
	last := ArgGlobal
	for _, a := range c.args {
		if a.Kind < last && !(a.Kind == ArgInputOption && last == ArgInput) {
			return fmt.Errorf("%w: %s argument %s after %s section", ErrInvalidCommand, a.Kind, a.Flag, last)
		}
		last = a.Kind

		switch a.Kind {
		case ArgFilterGraph:
			if graph != "" {
				return fmt.Errorf("%w: more than one filter graph", ErrInvalidCommand)
			}
			graph = a.Value
		case ArgMap:
			maps = append(maps, a.Value)
		case ArgOutput:
			outputs++
			if a.Value == "" {
				return fmt.Errorf("%w: empty output path", ErrInvalidCommand)
			}
		}
	}
	if outputs != 1 || c.args[len(c.args)-1].Kind != ArgOutput {
		return fmt.Errorf("%w: exactly one trailing output required", ErrInvalidCommand)
	}

	produced := map[string]bool{}
	if graph != "" {
		var err error
		if produced, err = validateGraph(graph, c.inputs); err != nil {
			return err
		}
	}

	for _, m := range maps {
		if strings.HasPrefix(m, "[") {
			label := strings.Trim(m, "[]")
			if !produced[label] {
				return fmt.Errorf("%w: map references unknown label %s", ErrInvalidCommand, m)
			}
			continue
		}
		idx, err := strconv.Atoi(strings.SplitN(m, ":", 2)[0])
		if err != nil || idx < 0 || idx >= c.inputs {
			return fmt.Errorf("%w: map references unknown input %q", ErrInvalidCommand, m)
		}
	}
	return nil
}

// validateGraph checks bracket balance, input references and that each
// consumed label was produced by an earlier chain. It returns the labels
// left unconsumed, which are the graph's outputs.
func validateGraph(graph string, inputs int) (map[string]bool, error) {
	if strings.Count(graph, "[") != strings.Count(graph, "]") {
		return nil, fmt.Errorf("%w: unbalanced brackets in filter graph", ErrInvalidCommand)
	}

	available := map[string]bool{}
	for i, chain := range strings.Split(graph, ";") {
		chain = strings.TrimSpace(chain)
		if chain == "" {
			return nil, fmt.Errorf("%w: empty filter chain at position %d", ErrInvalidCommand, i)
		}

		for _, m := range inputRefPattern.FindAllStringSubmatch(chain, -1) {
			idx, _ := strconv.Atoi(m[1])
			if idx >= inputs {
				return nil, fmt.Errorf("%w: filter chain %d references input %d of %d", ErrInvalidCommand, i, idx, inputs)
			}
		}

		outs := trailingLabelsExpr.FindString(chain)
		body := strings.TrimSuffix(chain, outs)
		for _, m := range labelPattern.FindAllStringSubmatch(body, -1) {
			if !available[m[1]] {
				return nil, fmt.Errorf("%w: filter chain %d consumes unknown label [%s]", ErrInvalidCommand, i, m[1])
			}
			delete(available, m[1])
		}
		if outs == "" {
			return nil, fmt.Errorf("%w: filter chain %d has no output label", ErrInvalidCommand, i)
		}
		for _, m := range labelPattern.FindAllStringSubmatch(outs, -1) {
			if available[m[1]] {
				return nil, fmt.Errorf("%w: label [%s] produced twice", ErrInvalidCommand, m[1])
			}
			available[m[1]] = true
		}
	}
	return available, nil
}

// Args validates the command and flattens it to an argv without the binary.
func (c *Command) Args() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	argv := make([]string, 0, len(c.args)*2)
	for _, a := range c.args {
		if a.Flag != "" {
			argv = append(argv, a.Flag)
		}
		if a.Value != "" || (a.Kind != ArgGlobal && a.Kind != ArgOutputOption) {
			argv = append(argv, a.Value)
		}
	}
	return argv, nil
}

// String renders the command for logs, quoting values with spaces or
// filter syntax. It does not validate.
func (c *Command) String() string {
	var b strings.Builder
	b.WriteString("ffmpeg")
	for _, a := range c.args {
		if a.Flag != "" {
			b.WriteString(" " + a.Flag)
		}
		if a.Value != "" {
			b.WriteString(" " + quote(a.Value))
		}
	}
	return b.String()
}

func quote(s string) string {
	if strings.ContainsAny(s, " ;[]'\"") {
		return strconv.Quote(s)
	}
	return s
}

// FormatSeconds renders seconds with millisecond precision and no trailing
// zeros.
func FormatSeconds(sec float64) string {
	s := strconv.FormatFloat(sec, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func first(values []string) string {
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
