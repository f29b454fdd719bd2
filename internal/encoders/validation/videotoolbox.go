package validation

import (
	"context"
	"fmt"
	"strings"
)

// VideoToolboxValidator validates macOS VideoToolbox encoders.
type VideoToolboxValidator struct{}

// NewVideoToolboxValidator creates a new VideoToolbox validator.
func NewVideoToolboxValidator() *VideoToolboxValidator {
	return &VideoToolboxValidator{}
}

// CanValidate returns true for videotoolbox encoders.
func (v *VideoToolboxValidator) CanValidate(encoderName string) bool {
	return strings.HasSuffix(encoderName, "_videotoolbox")
}

// Validate runs a test encode.
func (v *VideoToolboxValidator) Validate(ctx context.Context, ffmpegPath, encoderName string) error {
	return ValidateEncoderWithSettings(ctx, v, ffmpegPath, encoderName)
}

// GetEncoderNames returns the VideoToolbox H.264 encoder.
func (v *VideoToolboxValidator) GetEncoderNames() []string {
	return []string{"h264_videotoolbox"}
}

// GetDescription returns a description of this validator.
func (v *VideoToolboxValidator) GetDescription() string {
	return "Apple VideoToolbox - Hardware acceleration on macOS"
}

// IsHardware reports true.
func (v *VideoToolboxValidator) IsHardware() bool {
	return true
}

// GetProductionSettings maps the crf-like quality onto VideoToolbox's
// inverted 1-100 scale.
func (v *VideoToolboxValidator) GetProductionSettings(encoderName string, quality int) (*EncoderSettings, error) {
	if !v.CanValidate(encoderName) {
		return nil, fmt.Errorf("encoder %s is not supported by VideoToolbox validator", encoderName)
	}
	return &EncoderSettings{
		OutputParams: []string{"-q:v", itoa(AppleQuality(quality)), "-allow_sw", "1"},
	}, nil
}

// AppleQuality converts a crf-like value: max(40, 100 - q*2).
func AppleQuality(q int) int {
	return max(40, 100-q*2)
}
