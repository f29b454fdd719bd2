package validation

import (
	"context"
	"fmt"
	"strings"
)

// AmfValidator validates AMD AMF encoders.
type AmfValidator struct{}

// NewAmfValidator creates a new AMF validator.
func NewAmfValidator() *AmfValidator {
	return &AmfValidator{}
}

// CanValidate returns true for amf encoders.
func (v *AmfValidator) CanValidate(encoderName string) bool {
	return strings.HasSuffix(encoderName, "_amf")
}

// Validate runs a test encode.
func (v *AmfValidator) Validate(ctx context.Context, ffmpegPath, encoderName string) error {
	return ValidateEncoderWithSettings(ctx, v, ffmpegPath, encoderName)
}

// GetEncoderNames returns the AMF H.264 encoder.
func (v *AmfValidator) GetEncoderNames() []string {
	return []string{"h264_amf"}
}

// GetDescription returns a description of this validator.
func (v *AmfValidator) GetDescription() string {
	return "AMD AMF - Hardware acceleration on AMD GPUs"
}

// IsHardware reports true.
func (v *AmfValidator) IsHardware() bool {
	return true
}

// GetProductionSettings uses constant QP for I and P frames.
func (v *AmfValidator) GetProductionSettings(encoderName string, quality int) (*EncoderSettings, error) {
	if !v.CanValidate(encoderName) {
		return nil, fmt.Errorf("encoder %s is not supported by AMF validator", encoderName)
	}
	q := itoa(quality)
	return &EncoderSettings{
		OutputParams: []string{"-quality", "balanced", "-rc", "cqp", "-qp_i", q, "-qp_p", q},
	}, nil
}
