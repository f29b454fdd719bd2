package validation

import (
	"slices"
	"testing"
)

func TestGetProductionSettings(t *testing.T) {
	tests := []struct {
		name      string
		validator EncoderValidator
		encoder   string
		quality   int
		want      []string
		hardware  bool
	}{
		{"libx264", NewGenericValidator(), "libx264", 23, []string{"-preset", "medium", "-crf", "23"}, false},
		{"nvenc", NewNvencValidator(), "h264_nvenc", 26, []string{"-preset", "p4", "-rc", "vbr", "-cq", "26", "-b:v", "0"}, true},
		{"qsv", NewQsvValidator(), "h264_qsv", 20, []string{"-preset", "medium", "-global_quality", "20"}, true},
		{"amf", NewAmfValidator(), "h264_amf", 28, []string{"-quality", "balanced", "-rc", "cqp", "-qp_i", "28", "-qp_p", "28"}, true},
		{"videotoolbox high", NewVideoToolboxValidator(), "h264_videotoolbox", 23, []string{"-q:v", "54", "-allow_sw", "1"}, true},
		{"videotoolbox mobile", NewVideoToolboxValidator(), "h264_videotoolbox", 28, []string{"-q:v", "44", "-allow_sw", "1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := tt.validator.GetProductionSettings(tt.encoder, tt.quality)
			if err != nil {
				t.Fatalf("GetProductionSettings error: %v", err)
			}
			if !slices.Equal(settings.OutputParams, tt.want) {
				t.Errorf("OutputParams = %q, want %q", settings.OutputParams, tt.want)
			}
			if tt.validator.IsHardware() != tt.hardware {
				t.Errorf("IsHardware = %v, want %v", tt.validator.IsHardware(), tt.hardware)
			}
		})
	}
}

func TestGetProductionSettingsRejectsForeignEncoder(t *testing.T) {
	if _, err := NewNvencValidator().GetProductionSettings("h264_qsv", 23); err == nil {
		t.Error("nvenc validator accepted a qsv encoder")
	}
	if _, err := NewGenericValidator().GetProductionSettings("mpeg4", 23); err == nil {
		t.Error("software validator accepted an unknown encoder")
	}
}

func TestAppleQuality(t *testing.T) {
	tests := map[int]int{20: 60, 23: 54, 26: 48, 28: 44, 30: 40, 35: 40}
	for q, want := range tests {
		if got := AppleQuality(q); got != want {
			t.Errorf("AppleQuality(%d) = %d, want %d", q, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := map[string]string{
		"h264_nvenc":        "NVIDIA NVENC - Hardware acceleration on NVIDIA GPUs",
		"h264_videotoolbox": "Apple VideoToolbox - Hardware acceleration on macOS",
		"h264_qsv":          "Intel Quick Sync Video - Hardware acceleration on Intel GPUs",
		"libx264":           "Software - libx264 on the CPU",
	}
	for encoder, want := range tests {
		v := r.FindValidator(encoder)
		if v == nil || v.GetDescription() != want {
			t.Errorf("FindValidator(%q) = %v, want %q", encoder, v, want)
		}
	}

	compiled := []string{"libx264", "h264_nvenc", "aac"}
	if got := r.GetCompiledEncoders(NewNvencValidator(), compiled); !slices.Equal(got, []string{"h264_nvenc"}) {
		t.Errorf("GetCompiledEncoders = %v", got)
	}
	if got := r.GetCompiledEncoders(NewAmfValidator(), compiled); len(got) != 0 {
		t.Errorf("GetCompiledEncoders(amf) = %v, want none", got)
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("a\nb\nConversion failed!\n"); got != "Conversion failed!" {
		t.Errorf("lastLine = %q", got)
	}
}
