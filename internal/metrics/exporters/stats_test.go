package exporters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/sentryexport/internal/events"
	"github.com/smazurov/sentryexport/internal/metrics"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.ExportStatsEvent
}

func (b *recordingBus) Publish(ev events.Event) {
	se, ok := ev.(events.ExportStatsEvent)
	if !ok {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, se)
	b.mu.Unlock()
}

func (b *recordingBus) forJob(jobID string) []events.ExportStatsEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.ExportStatsEvent
	for _, ev := range b.events {
		if ev.JobID == jobID {
			out = append(out, ev)
		}
	}
	return out
}

func TestPublishFormatsStats(t *testing.T) {
	jobID := "stats-format-job"
	metrics.SetEncodeFPS(jobID, 36.0)
	metrics.SetEncodeSpeed(jobID, 1.5)
	defer metrics.DeleteEncodeStats(jobID)

	bus := &recordingBus{}
	p := NewStatsPublisher(bus, 0)
	if p.interval != DefaultStatsInterval {
		t.Errorf("interval = %v, want default", p.interval)
	}
	p.publish()

	got := bus.forJob(jobID)
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	if got[0].FPS != "36.00" || got[0].Speed != "1.50" {
		t.Errorf("event = %+v", got[0])
	}
}

func TestPublishSkipsUnchanged(t *testing.T) {
	jobID := "stats-dedupe-job"
	metrics.SetEncodeFPS(jobID, 30.0)
	defer metrics.DeleteEncodeStats(jobID)

	bus := &recordingBus{}
	p := NewStatsPublisher(bus, time.Hour)

	p.publish()
	p.publish()
	if n := len(bus.forJob(jobID)); n != 1 {
		t.Fatalf("events after unchanged tick = %d, want 1", n)
	}

	metrics.SetEncodeFPS(jobID, 31.0)
	p.publish()
	if n := len(bus.forJob(jobID)); n != 2 {
		t.Errorf("events after change = %d, want 2", n)
	}

	metrics.DeleteEncodeStats(jobID)
	p.publish()
	if _, ok := p.last[jobID]; ok {
		t.Error("finished job should be forgotten")
	}
}

func TestStartStop(t *testing.T) {
	jobID := "stats-loop-job"
	metrics.SetEncodeFPS(jobID, 45.0)
	defer metrics.DeleteEncodeStats(jobID)

	bus := &recordingBus{}
	p := NewStatsPublisher(bus, 10*time.Millisecond)

	// Stop before Start is harmless.
	p.Stop()

	p.Start(context.Background())
	p.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for len(bus.forJob(jobID)) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	if len(bus.forJob(jobID)) == 0 {
		t.Fatal("expected a stats event after Start")
	}

	metrics.SetEncodeFPS(jobID, 46.0)
	count := len(bus.forJob(jobID))
	time.Sleep(40 * time.Millisecond)
	if got := len(bus.forJob(jobID)); got != count {
		t.Errorf("events published after Stop: %d, want %d", got, count)
	}
}
