package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/sentryexport/internal/logging"
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// OutputHandlerFunc adapts a function to OutputHandler.
type OutputHandlerFunc func(source, line string)

// HandleLine implements OutputHandler.
func (f OutputHandlerFunc) HandleLine(source, line string) { f(source, line) }

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output.
type LogParser func(line string) (level, msg string)

// ErrAlreadyStarted is returned by Start on a second call.
var ErrAlreadyStarted = errors.New("process already started")

// Process runs one subprocess to completion. It is not restartable.
type Process struct {
	id            string
	argv          []string
	cmd           *exec.Cmd
	logger        logging.Logger
	processLogger logging.Logger // logger for process output (nil = use logger)
	logParser     LogParser      // parses process output for log level (nil = no parsing)
	outputHandler OutputHandler
	split         bufio.SplitFunc
	wantStdin     bool
	stdin         io.WriteCloser

	mu         sync.Mutex
	state      State
	startedAt  time.Time
	terminated bool
	exitCode   int
	done       chan struct{}
}

// NewProcess creates a process for argv (binary first).
func NewProcess(id string, argv []string, logger logging.Logger) *Process {
	return NewProcessWithOutput(id, argv, logger, nil)
}

// NewProcessWithOutput creates a new process with an output handler.
// The handler receives each line of stdout/stderr from the subprocess.
func NewProcessWithOutput(id string, argv []string, logger logging.Logger, handler OutputHandler) *Process {
	return &Process{
		id:            id,
		argv:          argv,
		logger:        logger,
		outputHandler: handler,
		split:         bufio.ScanLines,
		state:         StateIdle,
		done:          make(chan struct{}),
	}
}

// SetLogParser sets a custom logger and log parser for process output.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetSplit replaces the line splitter used on stdout and stderr.
func (p *Process) SetSplit(split bufio.SplitFunc) {
	p.split = split
}

// EnableStdin makes Start open a pipe to the subprocess's standard input.
func (p *Process) EnableStdin() {
	p.wantStdin = true
}

// Stdin returns the input pipe, or nil if EnableStdin was not called.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Args returns the argv the process runs.
func (p *Process) Args() []string {
	return p.argv
}

// Start launches the subprocess. Output is streamed in the background.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrAlreadyStarted
	}
	if len(p.argv) == 0 {
		p.state = StateError
		return fmt.Errorf("empty command")
	}

	p.cmd = exec.Command(p.argv[0], p.argv[1:]...)
	setProcAttr(p.cmd)

	if p.wantStdin {
		stdin, err := p.cmd.StdinPipe()
		if err != nil {
			p.state = StateError
			return fmt.Errorf("stdin pipe: %w", err)
		}
		p.stdin = stdin
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		p.state = StateError
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		p.state = StateError
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		p.state = StateError
		p.logger.Error("Failed to start process", "id", p.id, "error", err)
		return err
	}

	p.state = StateRunning
	p.startedAt = time.Now()
	p.logger.Info("Process started", "id", p.id, "pid", p.cmd.Process.Pid)

	outputDone := make(chan struct{}, 2)
	go func() {
		p.streamOutput(stdout, "stdout")
		outputDone <- struct{}{}
	}()
	go func() {
		p.streamOutput(stderr, "stderr")
		outputDone <- struct{}{}
	}()

	go func() {
		// Drain both streams before Wait closes the pipes.
		<-outputDone
		<-outputDone
		err := p.cmd.Wait()
		code := exitCodeFromError(err)

		p.mu.Lock()
		p.exitCode = code
		if code == 0 {
			p.state = StateExited
		} else {
			p.state = StateError
		}
		terminated := p.terminated
		p.mu.Unlock()

		if err != nil && code == 1 && !terminated {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				p.logger.Error("Process exited with error", "id", p.id, "error", err)
			}
		}
		p.logger.Info("Process exited", "id", p.id, "exit_code", code, "terminated", terminated)
		close(p.done)
	}()

	return nil
}

// Wait blocks until the process exits and returns its exit code.
func (p *Process) Wait() int {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Done is closed when the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Run starts the subprocess and blocks until it exits.
// Returns the exit code, or 1 if it could not be started.
func (p *Process) Run() int {
	if err := p.Start(); err != nil {
		return 1
	}
	return p.Wait()
}

// Terminate sends SIGTERM without waiting. There is no kill escalation;
// callers observe the exit through Wait or Done.
func (p *Process) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil || p.state != StateRunning {
		return nil
	}
	p.terminated = true
	p.state = StateStopping
	p.logger.Info("Sending SIGTERM to process", "id", p.id, "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal process: %w", err)
	}
	return nil
}

// Terminated reports whether Terminate was called on a running process.
func (p *Process) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// Info returns a snapshot of the process state.
func (p *Process) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := Info{
		ID:        p.id,
		State:     p.state,
		StartedAt: p.startedAt,
		ExitCode:  p.exitCode,
	}
	if p.cmd != nil && p.cmd.Process != nil {
		info.PID = p.cmd.Process.Pid
	}
	return info
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
// A signal-terminated process reports 128+signal.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput forwards each line to the output handler and the log.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(p.split)

	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if p.outputHandler != nil {
			p.outputHandler.HandleLine(source, line)
		}

		level, msg := "debug", line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg, "id", p.id)
		case "warning":
			logger.Warn(msg, "id", p.id)
		default:
			logger.Debug(msg, "id", p.id)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
	}
	// Keep the pipe drained so the child never blocks on a full buffer.
	_, _ = io.Copy(io.Discard, reader)
}
