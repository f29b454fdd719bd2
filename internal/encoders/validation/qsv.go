package validation

import (
	"context"
	"fmt"
	"strings"
)

// QsvValidator validates Intel Quick Sync encoders.
type QsvValidator struct{}

// NewQsvValidator creates a new QSV validator.
func NewQsvValidator() *QsvValidator {
	return &QsvValidator{}
}

// CanValidate returns true for qsv encoders.
func (v *QsvValidator) CanValidate(encoderName string) bool {
	return strings.HasSuffix(encoderName, "_qsv")
}

// Validate runs a test encode.
func (v *QsvValidator) Validate(ctx context.Context, ffmpegPath, encoderName string) error {
	return ValidateEncoderWithSettings(ctx, v, ffmpegPath, encoderName)
}

// GetEncoderNames returns the QSV H.264 encoder.
func (v *QsvValidator) GetEncoderNames() []string {
	return []string{"h264_qsv"}
}

// GetDescription returns a description of this validator.
func (v *QsvValidator) GetDescription() string {
	return "Intel Quick Sync Video - Hardware acceleration on Intel GPUs"
}

// IsHardware reports true.
func (v *QsvValidator) IsHardware() bool {
	return true
}

// GetProductionSettings uses ICQ via global_quality.
func (v *QsvValidator) GetProductionSettings(encoderName string, quality int) (*EncoderSettings, error) {
	if !v.CanValidate(encoderName) {
		return nil, fmt.Errorf("encoder %s is not supported by QSV validator", encoderName)
	}
	return &EncoderSettings{
		OutputParams: []string{"-preset", "medium", "-global_quality", itoa(quality)},
	}, nil
}
