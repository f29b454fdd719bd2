// Package encoders picks the H.264 encoder and quality settings for an
// export. Hardware support is probed once per process and cached.
package encoders

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// EncoderType represents the type of encoder (video, audio, subtitle).
type EncoderType string

// Encoder types as printed in the first flag column of ffmpeg -encoders.
const (
	VideoEncoder    EncoderType = "V"
	AudioEncoder    EncoderType = "A"
	SubtitleEncoder EncoderType = "S"
	Unknown         EncoderType = "?"
)

// Encoder represents an FFmpeg encoder.
type Encoder struct {
	Type        EncoderType `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	HWAccel     bool        `json:"hwaccel"`
}

var (
	encoderRegex = regexp.MustCompile(`^\s*([VASFXBD.]{6})\s+(\S+)\s+(.+)$`)
	hwaccelRegex = regexp.MustCompile(`(?i)(nvenc|qsv|amf|vaapi|videotoolbox|vdpau|cuda|dxva2|d3d11va|opencl|vulkan)`)
)

// ParseEncoderOutput parses the output of ffmpeg -encoders.
func ParseEncoderOutput(output string) ([]Encoder, error) {
	var result []Encoder
	scanner := bufio.NewScanner(strings.NewReader(output))

	started := false
	for scanner.Scan() {
		line := scanner.Text()

		// The legend ends with a line of dashes; the list follows.
		if !started {
			if strings.HasPrefix(strings.TrimSpace(line), "------") {
				started = true
			}
			continue
		}

		matches := encoderRegex.FindStringSubmatch(line)
		if len(matches) != 4 {
			continue
		}
		flags, name, description := matches[1], matches[2], matches[3]

		encoderType := Unknown
		switch flags[0] {
		case 'V':
			encoderType = VideoEncoder
		case 'A':
			encoderType = AudioEncoder
		case 'S':
			encoderType = SubtitleEncoder
		}

		result = append(result, Encoder{
			Type:        encoderType,
			Name:        name,
			Description: description,
			HWAccel:     hwaccelRegex.MatchString(name) || hwaccelRegex.MatchString(description),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading encoder list: %w", err)
	}
	return result, nil
}

// VideoEncoderNames returns the names of the video encoders in list.
func VideoEncoderNames(list []Encoder) []string {
	var names []string
	for _, e := range list {
		if e.Type == VideoEncoder {
			names = append(names, e.Name)
		}
	}
	return names
}
