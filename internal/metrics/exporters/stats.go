// Package exporters publishes encoder throughput to the event bus.
package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/sentryexport/internal/events"
	"github.com/smazurov/sentryexport/internal/metrics"
)

// DefaultStatsInterval is how often running jobs' throughput is sampled.
const DefaultStatsInterval = time.Second

// EventPublisher publishes events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// StatsPublisher samples per-job encoder stats and publishes an
// ExportStatsEvent for every job whose numbers moved since the last tick.
type StatsPublisher struct {
	bus      EventPublisher
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	last map[string]metrics.EncodeStats
}

// NewStatsPublisher creates a publisher. interval <= 0 uses DefaultStatsInterval.
func NewStatsPublisher(bus EventPublisher, interval time.Duration) *StatsPublisher {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	return &StatsPublisher{
		bus:      bus,
		interval: interval,
		last:     make(map[string]metrics.EncodeStats),
	}
}

// Start launches the sampling loop. Calling Start twice is a no-op.
func (p *StatsPublisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (p *StatsPublisher) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *StatsPublisher) run(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *StatsPublisher) publish() {
	current := metrics.GetAllEncodeStats()
	for jobID, st := range current {
		if prev, ok := p.last[jobID]; ok && prev == *st {
			continue
		}
		p.last[jobID] = *st
		p.bus.Publish(events.ExportStatsEvent{
			EventType: "export_stats",
			JobID:     jobID,
			FPS:       strconv.FormatFloat(st.FPS, 'f', 2, 64),
			Speed:     strconv.FormatFloat(st.Speed, 'f', 2, 64),
		})
	}
	for jobID := range p.last {
		if _, ok := current[jobID]; !ok {
			delete(p.last, jobID)
		}
	}
}
