package validation

import (
	"context"
	"fmt"
	"strings"
)

// NvencValidator validates NVIDIA NVENC encoders.
type NvencValidator struct{}

// NewNvencValidator creates a new NVENC validator.
func NewNvencValidator() *NvencValidator {
	return &NvencValidator{}
}

// CanValidate returns true for nvenc encoders.
func (v *NvencValidator) CanValidate(encoderName string) bool {
	return strings.HasSuffix(encoderName, "_nvenc")
}

// Validate runs a test encode.
func (v *NvencValidator) Validate(ctx context.Context, ffmpegPath, encoderName string) error {
	return ValidateEncoderWithSettings(ctx, v, ffmpegPath, encoderName)
}

// GetEncoderNames returns the NVENC H.264 encoder.
func (v *NvencValidator) GetEncoderNames() []string {
	return []string{"h264_nvenc"}
}

// GetDescription returns a description of this validator.
func (v *NvencValidator) GetDescription() string {
	return "NVIDIA NVENC - Hardware acceleration on NVIDIA GPUs"
}

// IsHardware reports true.
func (v *NvencValidator) IsHardware() bool {
	return true
}

// GetProductionSettings uses constant quality VBR; -b:v 0 lets cq drive the
// rate like crf does for x264.
func (v *NvencValidator) GetProductionSettings(encoderName string, quality int) (*EncoderSettings, error) {
	if !v.CanValidate(encoderName) {
		return nil, fmt.Errorf("encoder %s is not supported by NVENC validator", encoderName)
	}
	return &EncoderSettings{
		OutputParams: []string{"-preset", "p4", "-rc", "vbr", "-cq", itoa(quality), "-b:v", "0"},
	}, nil
}
