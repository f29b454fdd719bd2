package ffmpeg

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNotFound is returned when no ffmpeg binary can be located.
var ErrNotFound = errors.New("ffmpeg not found")

// FindBinary resolves the ffmpeg executable. A configured path wins; then a
// binary next to our own executable, then PATH, then common install dirs.
func FindBinary(configured string) (string, error) {
	if configured != "" {
		if isFile(configured) {
			return configured, nil
		}
		if path, err := exec.LookPath(configured); err == nil {
			return path, nil
		}
		return "", ErrNotFound
	}

	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name = "ffmpeg.exe"
	}

	if exe, err := os.Executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), name)
		if isFile(bundled) {
			return bundled, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	var common []string
	switch runtime.GOOS {
	case "darwin":
		common = []string{"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/opt/local/bin/ffmpeg"}
	case "linux":
		common = []string{"/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg"}
	case "windows":
		common = []string{`C:\ffmpeg\bin\ffmpeg.exe`, `C:\Program Files\ffmpeg\bin\ffmpeg.exe`}
	}
	for _, path := range common {
		if isFile(path) {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
