package validation

import (
	"context"
	"fmt"
)

// SoftwareEncoder is the encoder every ffmpeg build is expected to carry.
const SoftwareEncoder = "libx264"

// GenericValidator handles CPU encoders and acts as the fallback.
type GenericValidator struct{}

// NewGenericValidator creates a new generic validator.
func NewGenericValidator() *GenericValidator {
	return &GenericValidator{}
}

// CanValidate returns true for any encoder.
func (v *GenericValidator) CanValidate(string) bool {
	return true
}

// Validate runs a test encode.
func (v *GenericValidator) Validate(ctx context.Context, ffmpegPath, encoderName string) error {
	return ValidateEncoderWithSettings(ctx, v, ffmpegPath, encoderName)
}

// GetEncoderNames returns the software H.264 encoder.
func (v *GenericValidator) GetEncoderNames() []string {
	return []string{SoftwareEncoder}
}

// GetDescription returns a description of this validator.
func (v *GenericValidator) GetDescription() string {
	return "Software - libx264 on the CPU"
}

// IsHardware is false for CPU encoders.
func (v *GenericValidator) IsHardware() bool {
	return false
}

// GetProductionSettings uses constant rate factor with the medium preset.
func (v *GenericValidator) GetProductionSettings(encoderName string, quality int) (*EncoderSettings, error) {
	if encoderName != SoftwareEncoder {
		return nil, fmt.Errorf("encoder %s is not supported by the software validator", encoderName)
	}
	return &EncoderSettings{
		OutputParams: []string{"-preset", "medium", "-crf", itoa(quality)},
	}, nil
}
