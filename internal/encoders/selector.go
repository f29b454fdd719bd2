package encoders

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/sentryexport/internal/encoders/validation"
	"github.com/smazurov/sentryexport/internal/logging"
)

// MaxHardwareDimension is the largest width or height handed to a hardware
// encoder; larger grids go to software.
const MaxHardwareDimension = 4096

// ProbeTimeout bounds the one-time capability probe, including every
// hardware test encode.
const ProbeTimeout = 2 * time.Minute

// Hardware encoder names in the order the selector considers them.
const (
	EncoderVideoToolbox = "h264_videotoolbox"
	EncoderNVENC        = "h264_nvenc"
	EncoderQSV          = "h264_qsv"
	EncoderAMF          = "h264_amf"
)

// PreferenceOrder returns the hardware encoders worth trying on goos,
// platform-native first. The software encoder is always the final fallback
// and is not included.
func PreferenceOrder(goos string) []string {
	switch goos {
	case "darwin":
		return []string{EncoderVideoToolbox}
	case "linux":
		return []string{EncoderNVENC, EncoderQSV}
	case "windows":
		return []string{EncoderNVENC, EncoderQSV, EncoderAMF}
	default:
		return nil
	}
}

// Request describes the export the encoder is chosen for.
type Request struct {
	Quality   Quality
	FrontOnly bool
	Mobile    bool
	// Composed output size; zero means "same as one cell".
	OutputWidth  int
	OutputHeight int
}

// Choice is the selected encoder with the arguments an export needs.
type Choice struct {
	Encoder    string   `json:"encoder"`
	Hardware   bool     `json:"hardware"`
	GlobalArgs []string `json:"global_args,omitempty"`
	OutputArgs []string `json:"output_args"`
	Target     Target   `json:"target"`
	Reason     string   `json:"reason,omitempty"`
}

// Args returns "-c:v <encoder>" followed by the encoder's quality flags.
func (c Choice) Args() []string {
	return append([]string{"-c:v", c.Encoder}, c.OutputArgs...)
}

// Selector chooses encoders from a capability probe that runs at most once.
type Selector struct {
	prober   Prober
	registry *validation.ValidatorRegistry
	goos     string
	logger   logging.Logger

	once sync.Once
	caps Capabilities
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithGOOS overrides the platform used for preference ordering.
func WithGOOS(goos string) SelectorOption {
	return func(s *Selector) { s.goos = goos }
}

// WithRegistry overrides the validator registry used for encoder flags.
func WithRegistry(r *validation.ValidatorRegistry) SelectorOption {
	return func(s *Selector) { s.registry = r }
}

// NewSelector creates a selector backed by prober.
func NewSelector(prober Prober, opts ...SelectorOption) *Selector {
	s := &Selector{
		prober:   prober,
		registry: validation.DefaultRegistry(),
		goos:     runtime.GOOS,
		logger:   logging.GetLogger("encoders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capabilities returns the cached probe result, probing on first use.
// A failed probe is cached as "software only". The probe is detached from
// ctx and bounded by ProbeTimeout, since its result outlives the caller.
func (s *Selector) Capabilities(ctx context.Context) Capabilities {
	s.once.Do(func() {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ProbeTimeout)
		defer cancel()
		caps, err := s.prober.Probe(probeCtx)
		if err != nil {
			s.logger.Warn("Encoder probe failed, using software encoding", "error", err)
			caps.Hardware = nil
			caps.Error = err.Error()
		}
		s.caps = caps
		s.logger.Info("Encoder capabilities detected",
			"compiled", len(caps.Compiled),
			"hardware", caps.Hardware)
	})
	return s.caps
}

// Select picks an encoder for req.
func (s *Selector) Select(ctx context.Context, req Request) (Choice, error) {
	quality := req.Quality
	if req.Mobile {
		quality = QualityMobile
	}
	target, err := TargetFor(quality, req.FrontOnly)
	if err != nil {
		return Choice{}, err
	}

	width, height := req.OutputWidth, req.OutputHeight
	if width == 0 || height == 0 {
		width, height = target.Width, target.Height
	}

	caps := s.Capabilities(ctx)
	encoder, reason := s.pick(caps, quality, width, height)

	validator := s.registry.FindValidator(encoder)
	if validator == nil {
		return Choice{}, fmt.Errorf("no validator for encoder %s", encoder)
	}
	settings, err := validator.GetProductionSettings(encoder, target.Quality)
	if err != nil {
		return Choice{}, err
	}

	choice := Choice{
		Encoder:    encoder,
		Hardware:   validator.IsHardware(),
		GlobalArgs: settings.GlobalArgs,
		OutputArgs: settings.OutputParams,
		Target:     target,
		Reason:     reason,
	}
	s.logger.Debug("Encoder selected",
		"encoder", choice.Encoder,
		"hardware", choice.Hardware,
		"quality", quality,
		"width", width,
		"height", height,
		"reason", reason)
	return choice, nil
}

func (s *Selector) pick(caps Capabilities, quality Quality, width, height int) (string, string) {
	if quality == QualityMobile {
		return validation.SoftwareEncoder, "mobile export"
	}
	if width > MaxHardwareDimension || height > MaxHardwareDimension {
		return validation.SoftwareEncoder, fmt.Sprintf("%dx%d exceeds hardware limit", width, height)
	}
	for _, name := range PreferenceOrder(s.goos) {
		if caps.HasHardware(name) {
			return name, "hardware available"
		}
	}
	if len(caps.Compiled) > 0 && !slices.Contains(caps.Compiled, validation.SoftwareEncoder) {
		s.logger.Warn("Software encoder not listed by ffmpeg", "encoder", validation.SoftwareEncoder)
	}
	return validation.SoftwareEncoder, "no hardware encoder"
}
