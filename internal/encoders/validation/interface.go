// Package validation holds per-vendor encoder knowledge: which encoder names
// a vendor ships, the flags a production export uses, and a short test
// encode that proves the encoder works on this machine.
package validation

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/sentryexport/internal/ffmpeg"
)

// validateTimeout bounds a single test encode.
const validateTimeout = 10 * time.Second

// EncoderSettings contains the ffmpeg arguments an encoder needs.
type EncoderSettings struct {
	GlobalArgs   []string `json:"global_args"`   // placed before the first input
	OutputParams []string `json:"output_params"` // flag/value pairs after -c:v
}

// EncoderValidator describes one encoder family.
type EncoderValidator interface {
	// CanValidate returns true if this validator can handle the given encoder name
	CanValidate(encoderName string) bool

	// Validate runs a short test encode with production settings
	Validate(ctx context.Context, ffmpegPath, encoderName string) error

	// GetEncoderNames returns the encoder names this validator handles
	GetEncoderNames() []string

	// GetDescription returns a human-readable description
	GetDescription() string

	// IsHardware reports whether the family offloads to codec silicon
	IsHardware() bool

	// GetProductionSettings returns the export flags for the given quality
	// parameter (lower is better, crf-like)
	GetProductionSettings(encoderName string, quality int) (*EncoderSettings, error)
}

// ValidatorRegistry holds all registered validators in priority order.
type ValidatorRegistry struct {
	validators []EncoderValidator
}

// NewValidatorRegistry creates an empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{}
}

// DefaultRegistry returns every vendor validator plus the software fallback.
func DefaultRegistry() *ValidatorRegistry {
	r := NewValidatorRegistry()
	r.Register(NewVideoToolboxValidator())
	r.Register(NewNvencValidator())
	r.Register(NewQsvValidator())
	r.Register(NewAmfValidator())
	r.Register(NewGenericValidator()) // fallback last
	return r
}

// Register adds a validator to the registry.
func (r *ValidatorRegistry) Register(validator EncoderValidator) {
	r.validators = append(r.validators, validator)
}

// FindValidator returns the first validator that handles encoderName.
func (r *ValidatorRegistry) FindValidator(encoderName string) EncoderValidator {
	for _, validator := range r.validators {
		if validator.CanValidate(encoderName) {
			return validator
		}
	}
	return nil
}

// GetAllValidators returns all registered validators.
func (r *ValidatorRegistry) GetAllValidators() []EncoderValidator {
	return r.validators
}

// GetCompiledEncoders returns the validator's encoder names present in compiled.
func (r *ValidatorRegistry) GetCompiledEncoders(validator EncoderValidator, compiled []string) []string {
	var out []string
	for _, name := range validator.GetEncoderNames() {
		if slices.Contains(compiled, name) {
			out = append(out, name)
		}
	}
	return out
}

// ValidateEncoderWithSettings encodes one second of a synthetic source to the
// null muxer using the validator's production settings.
func ValidateEncoderWithSettings(ctx context.Context, validator EncoderValidator, ffmpegPath, encoderName string) error {
	settings, err := validator.GetProductionSettings(encoderName, 23)
	if err != nil {
		return fmt.Errorf("failed to get production settings: %w", err)
	}

	cmd := ffmpeg.New().Global("-nostdin")
	for i := 0; i+1 < len(settings.GlobalArgs); i += 2 {
		cmd.Global(settings.GlobalArgs[i], settings.GlobalArgs[i+1])
	}
	cmd.Input("testsrc2=duration=1:size=640x480:rate=30", ffmpeg.InputOptions{Format: "lavfi"})
	cmd.Option("-t", "1").Option("-c:v", encoderName).Options(settings.OutputParams...)
	cmd.Option("-pix_fmt", "yuv420p").Option("-f", "null").Output("-")

	args, err := cmd.Args()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	var stderr bytes.Buffer
	run := exec.CommandContext(ctx, ffmpegPath, args...)
	run.Stderr = &stderr
	if runErr := run.Run(); runErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("test encode with %s timed out", encoderName)
		}
		return fmt.Errorf("test encode with %s failed: %w: %s", encoderName, runErr, lastLine(stderr.String()))
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
