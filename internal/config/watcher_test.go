package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[Options]) *Watcher[Options] {
	t.Helper()
	opts = append([]WatcherOption[Options]{WithDebounce[Options](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, Load, testLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	// fsnotify needs a moment before the first write is observed
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "[tiles]\ndelay_ms = 100\n")

	w := startWatcher(t, path)
	received := make(chan Options, 1)
	w.OnReload(func(o Options) { received <- o })

	if err := os.WriteFile(path, []byte("[tiles]\ndelay_ms = 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case o := <-received:
		if o.TilesDelayMs != 500 {
			t.Errorf("TilesDelayMs = %d, want 500", o.TilesDelayMs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherReloadsOnRename(t *testing.T) {
	path := writeConfig(t, "[minimap]\nwidth = 300\n")

	w := startWatcher(t, path)
	received := make(chan Options, 1)
	w.OnReload(func(o Options) { received <- o })

	tmp := filepath.Join(filepath.Dir(path), ".config.toml.swp")
	if err := os.WriteFile(tmp, []byte("[minimap]\nwidth = 640\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case o := <-received:
		if o.MinimapWidth != 640 {
			t.Errorf("MinimapWidth = %d, want 640", o.MinimapWidth)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := writeConfig(t, "")
	w := NewConfigWatcher(path, Load, testLogger())

	var calls atomic.Int32
	unsub := w.OnReload(func(Options) { calls.Add(1) })
	w.Reload()
	unsub()
	w.Reload()

	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := writeConfig(t, "")
	loadErr := errors.New("boom")

	var gotErr error
	var called bool
	w := NewConfigWatcher(path,
		func(string) (Options, error) { return Options{}, loadErr },
		testLogger(),
		WithErrorHandler[Options](func(err error) { gotErr = err }),
	)
	w.OnReload(func(Options) { called = true })
	w.Reload()

	if !errors.Is(gotErr, loadErr) {
		t.Errorf("error handler got %v, want %v", gotErr, loadErr)
	}
	if called {
		t.Error("reload handler must not run when loading fails")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := writeConfig(t, "")

	var calls atomic.Int32
	w := startWatcher(t, path, WithDebounce[Options](200*time.Millisecond))
	w.OnReload(func(Options) { calls.Add(1) })

	for i := range 5 {
		content := []byte("[tiles]\ndelay_ms = " + string(rune('1'+i)) + "\n")
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1 after debounce", got)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, "")

	var calls atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(Options) { calls.Add(1) })

	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("handler called %d times for unrelated file", got)
	}
}
