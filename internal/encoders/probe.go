package encoders

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/smazurov/sentryexport/internal/encoders/validation"
	"github.com/smazurov/sentryexport/internal/logging"
)

// Capabilities is the probe result: what the ffmpeg build contains and which
// hardware encoders passed a test encode.
type Capabilities struct {
	FFmpegPath    string    `json:"ffmpeg_path"`
	FFmpegVersion string    `json:"ffmpeg_version"`
	Compiled      []string  `json:"compiled"`
	Hardware      []string  `json:"hardware"`
	Failed        []string  `json:"failed,omitempty"`
	ProbedAt      time.Time `json:"probed_at"`
	Error         string    `json:"error,omitempty"`
}

// HasHardware reports whether encoder passed validation.
func (c Capabilities) HasHardware(encoder string) bool {
	for _, name := range c.Hardware {
		if name == encoder {
			return true
		}
	}
	return false
}

// Prober produces Capabilities.
type Prober interface {
	Probe(ctx context.Context) (Capabilities, error)
}

// CommandRunner runs a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpegProber lists compiled encoders and test-encodes each hardware
// candidate that the registry knows.
type FFmpegProber struct {
	Path     string
	Registry *validation.ValidatorRegistry
	Run      CommandRunner
	// Validate overrides the per-encoder test encode.
	Validate func(ctx context.Context, v validation.EncoderValidator, encoder string) error
	logger   logging.Logger
}

// NewFFmpegProber creates a prober for the given ffmpeg binary.
func NewFFmpegProber(path string) *FFmpegProber {
	p := &FFmpegProber{
		Path:     path,
		Registry: validation.DefaultRegistry(),
		Run:      runCommand,
		logger:   logging.GetLogger("encoders"),
	}
	p.Validate = func(ctx context.Context, v validation.EncoderValidator, encoder string) error {
		return v.Validate(ctx, p.Path, encoder)
	}
	return p
}

// Probe implements Prober.
func (p *FFmpegProber) Probe(ctx context.Context) (Capabilities, error) {
	caps := Capabilities{FFmpegPath: p.Path, ProbedAt: time.Now()}

	out, err := p.Run(ctx, p.Path, "-hide_banner", "-encoders")
	if err != nil {
		return caps, fmt.Errorf("list encoders: %w", err)
	}
	list, err := ParseEncoderOutput(string(out))
	if err != nil {
		return caps, err
	}
	caps.Compiled = VideoEncoderNames(list)

	if version, verr := p.Run(ctx, p.Path, "-hide_banner", "-version"); verr == nil {
		caps.FFmpegVersion = parseVersion(string(version))
	}

	for _, validator := range p.Registry.GetAllValidators() {
		if !validator.IsHardware() {
			continue
		}
		for _, encoder := range p.Registry.GetCompiledEncoders(validator, caps.Compiled) {
			if verr := p.Validate(ctx, validator, encoder); verr != nil {
				if ctx.Err() != nil {
					return caps, fmt.Errorf("validate %s: %w", encoder, ctx.Err())
				}
				p.logger.Info("Hardware encoder unavailable", "encoder", encoder, "error", verr)
				caps.Failed = append(caps.Failed, encoder)
				continue
			}
			p.logger.Info("Hardware encoder available", "encoder", encoder)
			caps.Hardware = append(caps.Hardware, encoder)
		}
	}
	return caps, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(output string) string {
	fields := strings.Fields(output)
	for i := 0; i+2 < len(fields); i++ {
		if fields[i] == "ffmpeg" && fields[i+1] == "version" {
			return fields[i+2]
		}
	}
	return ""
}
