package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string `help:"Config file path"`

	Name    string   `toml:"test.name" env:"TEST_NAME" default:"fallback"`
	Enabled bool     `toml:"test.enabled" env:"TEST_ENABLED"`
	Count   int      `toml:"test.count" env:"TEST_COUNT" default:"7"`
	Tags    []string `toml:"test.tags" env:"TEST_TAGS"`

	NestedValue string `toml:"nested.deep.value" env:"NESTED_VALUE"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[test]
name = "front"
enabled = true
count = 42
tags = ["a", "b"]

[nested.deep]
value = "x"
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := &testOptions{Config: path, Name: "front", Enabled: true, Count: 42, Tags: []string{"a", "b"}, NestedValue: "x"}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("got %+v, want %+v", opts, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, "[test]\nname = \"toml\"\ncount = 3\n")
	t.Setenv(EnvPrefix+"TEST_NAME", "env")
	t.Setenv(EnvPrefix+"TEST_TAGS", " x , y ")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Name != "env" {
		t.Errorf("Name = %q, want env", opts.Name)
	}
	if opts.Count != 3 {
		t.Errorf("Count = %d, want 3 from TOML", opts.Count)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"x", "y"}) {
		t.Errorf("Tags = %v, want [x y]", opts.Tags)
	}
}

func TestLoadConfigCLIFlagWins(t *testing.T) {
	path := writeConfig(t, "[test]\nname = \"toml\"\n")
	t.Setenv(EnvPrefix+"TEST_NAME", "env")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Name, "name", "", "")
	if err := cmd.Flags().Set("name", "cli"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Name != "cli" {
		t.Errorf("Name = %q, want cli", opts.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, "[test\ninvalid")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	opts := &testOptions{}
	ApplyDefaults(opts)
	if opts.Name != "fallback" || opts.Count != 7 {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{"value": "nested"},
			"simple": "simple",
		},
		"root": "root",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "root"},
		{"level1.simple", "simple"},
		{"level1.level2.value", "nested"},
		{"missing", nil},
		{"root.child", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":                "port",
		"TilesDelayMs":        "tiles-delay-ms",
		"MinimapFrameTimeout": "minimap-frame-timeout",
		"CORSOrigin":          "cors-origin",
		"FFmpegPath":          "f-fmpeg-path",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadOptions(t *testing.T) {
	path := writeConfig(t, `
[tiles]
delay_ms = 250
timeout = "3s"

[logging]
level = "warn"
minimap = "debug"
`)

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.TilesDelayMs != 250 {
		t.Errorf("TilesDelayMs = %d, want 250", opts.TilesDelayMs)
	}
	if got := Duration(opts.TilesTimeout, 0); got.String() != "3s" {
		t.Errorf("TilesTimeout = %v, want 3s", got)
	}
	if opts.ExportFrameRate != 36 {
		t.Errorf("ExportFrameRate = %d, want default 36", opts.ExportFrameRate)
	}

	lc := opts.Logging()
	if lc.Level != "warn" || lc.Modules["minimap"] != "debug" || lc.Modules["export"] != "info" {
		t.Errorf("unexpected logging config: %+v", lc)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("bogus", 42); got != 42 {
		t.Errorf("Duration(bogus) = %v, want fallback", got)
	}
	if got := Duration("-1s", 42); got != 42 {
		t.Errorf("Duration(-1s) = %v, want fallback", got)
	}
}
