package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"export": "debug",
			"api":    "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"export", true, true, true},
		{"api", false, false, true},
		{"basemap", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestApplyLevelsUpdatesExistingLoggers(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("minimap")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled before reload")
	}

	ApplyLevels(Config{Level: "info", Modules: map[string]string{"minimap": "debug"}})

	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after reload without fetching a new logger")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()

	if SetModuleLevel("export", "verbose") {
		t.Error("unknown level should be rejected")
	}
	if !SetModuleLevel("export", "error") {
		t.Fatal("valid level rejected")
	}
	if GetLogger("export").Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	logger := GetLogger("early")
	if logger == nil {
		t.Fatal("GetLogger returned nil before Initialize")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled by default")
	}
	if GetLogger("early") != logger {
		t.Error("GetLogger should return the cached logger")
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("module", "test")

	logger.Debug("debug message")
	logger.Warn("warn message")

	if !strings.Contains(debugBuf.String(), "debug message") || !strings.Contains(debugBuf.String(), "warn message") {
		t.Errorf("debug sink missing records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "debug message") {
		t.Errorf("warn sink received debug record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "module=test") {
		t.Errorf("attrs not propagated: %q", warnBuf.String())
	}
}

func TestAddAttrToFields(t *testing.T) {
	fields := make(map[string]string)
	addAttrToFields(fields, slog.Int("frames", 36), nil)
	addAttrToFields(fields, slog.Group("job", slog.String("id", "abc")), []string{"export"})
	addAttrToFields(fields, slog.Attr{}, nil)
	addAttrToFields(fields, slog.Duration("elapsed", 1500*time.Millisecond), nil)
	addAttrToFields(fields, slog.String("tile.url", "https://t/1/2/3.png"), nil)

	if fields["FRAMES"] != "36" {
		t.Errorf("FRAMES = %q, want 36", fields["FRAMES"])
	}
	if fields["EXPORT_JOB_ID"] != "abc" {
		t.Errorf("EXPORT_JOB_ID = %q, want abc (fields: %v)", fields["EXPORT_JOB_ID"], fields)
	}
	if fields["ELAPSED_MS"] != "1500" {
		t.Errorf("ELAPSED_MS = %q, want 1500", fields["ELAPSED_MS"])
	}
	if fields["TILE_URL"] != "https://t/1/2/3.png" {
		t.Errorf("TILE_URL = %q (fields: %v)", fields["TILE_URL"], fields)
	}
	if len(fields) != 4 {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		in   string
		want *slog.Level
	}{
		{"debug", ptr(slog.LevelDebug)},
		{"INFO", ptr(slog.LevelInfo)},
		{"warning", ptr(slog.LevelWarn)},
		{" error ", ptr(slog.LevelError)},
		{"trace", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseLevel(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func ptr(l slog.Level) *slog.Level { return &l }
