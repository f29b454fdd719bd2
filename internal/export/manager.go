// Package export runs export jobs: it resolves segments into encoder inputs,
// composes the camera grid with an optional minimap overlay and drives the
// encode process to completion, failure or cancellation.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/smazurov/sentryexport/internal/basemap"
	"github.com/smazurov/sentryexport/internal/encoders"
	"github.com/smazurov/sentryexport/internal/events"
	"github.com/smazurov/sentryexport/internal/ffmpeg"
	"github.com/smazurov/sentryexport/internal/filtergraph"
	"github.com/smazurov/sentryexport/internal/logging"
	"github.com/smazurov/sentryexport/internal/metrics"
	"github.com/smazurov/sentryexport/internal/metrics/collectors"
	"github.com/smazurov/sentryexport/internal/minimap"
	"github.com/smazurov/sentryexport/internal/process"
	"github.com/smazurov/sentryexport/internal/segments"
)

const (
	// DefaultFrameRate is the output frame rate.
	DefaultFrameRate = 36
	// MinimapShare is the slice of job progress taken by the minimap render.
	MinimapShare = 10
	// HistorySize is how many finished jobs stay queryable.
	HistorySize = 100
)

// Publisher receives job events. *events.Bus implements it.
type Publisher interface {
	Publish(ev events.Event)
}

// SurfaceFactory creates a render surface over a map background.
type SurfaceFactory func(bg *basemap.Background) minimap.Surface

// Config configures a Manager.
type Config struct {
	FFmpegPath     string
	TempDir        string
	FrameRate      int
	DefaultQuality encoders.Quality
	MinimapWidth   int
	MinimapHeight  int
	Tiles          basemap.Options
	Minimap        minimap.Config
}

// Manager owns the active-job registry and runs jobs.
type Manager struct {
	cfg        Config
	selector   *encoders.Selector
	registry   *Registry
	bus        Publisher
	maps       *basemap.Builder
	renderer   *minimap.Renderer
	newSurface SurfaceFactory
	logger     logging.Logger

	historyMu sync.Mutex
	history   map[string]Snapshot
	order     []string

	wg sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithSurfaceFactory replaces the raster render surface.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(m *Manager) { m.newSurface = f }
}

// WithMapBuilder replaces the basemap builder.
func WithMapBuilder(b *basemap.Builder) Option {
	return func(m *Manager) { m.maps = b }
}

// NewManager creates a manager. bus may be nil.
func NewManager(cfg Config, selector *encoders.Selector, bus Publisher, opts ...Option) *Manager {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.DefaultQuality == "" {
		cfg.DefaultQuality = encoders.QualityHigh
	}
	if cfg.MinimapWidth <= 0 {
		cfg.MinimapWidth = 400
	}
	if cfg.MinimapHeight <= 0 {
		cfg.MinimapHeight = 400
	}
	if cfg.Tiles.TempDir == "" {
		cfg.Tiles.TempDir = cfg.TempDir
	}
	cfg.Minimap.FFmpegPath = cfg.FFmpegPath
	cfg.Minimap.FrameRate = cfg.FrameRate

	m := &Manager{
		cfg:      cfg,
		selector: selector,
		registry: NewRegistry(),
		bus:      bus,
		renderer: minimap.NewRenderer(cfg.Minimap),
		newSurface: func(bg *basemap.Background) minimap.Surface {
			return minimap.NewRasterSurface(bg, minimap.DefaultStyle)
		},
		logger:  logging.GetLogger("export"),
		history: make(map[string]Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maps == nil {
		m.maps = basemap.NewBuilder(cfg.Tiles, nil)
	}
	return m
}

// Submit validates req, starts a job in the background and returns its id.
func (m *Manager) Submit(ctx context.Context, req Request) (string, error) {
	job, err := m.newJob(ctx, req)
	if err != nil {
		return "", err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(job)
	}()
	return job.ID, nil
}

// Run executes req synchronously and returns the final snapshot. The error
// is nil only for a completed export.
func (m *Manager) Run(ctx context.Context, req Request) (Snapshot, error) {
	job, err := m.newJob(ctx, req)
	if err != nil {
		return Snapshot{}, err
	}
	runErr := m.execute(job)
	return job.Snapshot(), runErr
}

func (m *Manager) newJob(ctx context.Context, req Request) (*Job, error) {
	if req.Quality == "" {
		req.Quality = m.cfg.DefaultQuality
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// Jobs outlive the submitting request; only values are inherited.
	job := newJob(context.WithoutCancel(ctx), uuid.NewString(), req)
	m.registry.Insert(job)
	return job, nil
}

// Job returns a snapshot of an active or recently finished job.
func (m *Manager) Job(id string) (Snapshot, bool) {
	if job := m.registry.Get(id); job != nil {
		return job.Snapshot(), true
	}
	m.historyMu.Lock()
	defer m.historyMu.Unlock()
	s, ok := m.history[id]
	return s, ok
}

// Active returns snapshots of the jobs in the registry, oldest first.
func (m *Manager) Active() []Snapshot {
	jobs := m.registry.List()
	out := make([]Snapshot, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	return out
}

// List returns active jobs followed by finished ones, newest last.
func (m *Manager) List() []Snapshot {
	out := m.Active()
	m.historyMu.Lock()
	defer m.historyMu.Unlock()
	for _, id := range m.order {
		out = append(out, m.history[id])
	}
	return out
}

// Cancel removes the job from the registry and signals its encoder. It
// returns false if the job is not active.
func (m *Manager) Cancel(id string) bool {
	job := m.registry.Remove(id)
	if job == nil {
		return false
	}
	m.logger.Info("Cancelling export", "job_id", id)
	proc := job.markCancelled()
	job.cancel()
	if proc != nil {
		if err := proc.Terminate(); err != nil {
			m.logger.Warn("Failed to signal encoder", "job_id", id, "error", err)
		}
	}
	return true
}

// Shutdown cancels every active job and waits for background jobs to finish
// or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, job := range m.registry.List() {
		m.Cancel(job.ID)
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs job and funnels every exit, panics included, through one
// completion path.
func (m *Manager) execute(job *Job) (err error) {
	var size int64
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export panicked: %v", r)
		}
		err = m.complete(job, size, err)
	}()
	size, err = m.export(job)
	return err
}

func (m *Manager) complete(job *Job, size int64, err error) error {
	job.cleanup()
	m.registry.Remove(job.ID)

	state := StateCompleted
	var msg string
	switch {
	case job.isCancelled() || errors.Is(err, ErrCancelled) || errors.Is(err, minimap.ErrCancelled):
		state, msg, err = StateCancelled, "Export cancelled", ErrCancelled
	case err != nil:
		state, msg = StateFailed, err.Error()
	default:
		msg = fmt.Sprintf("Export complete: %s (%s)", filepath.Base(job.Request.Output), humanize.Bytes(uint64(size)))
	}

	if !job.finish(state, msg, size) {
		return err
	}

	snap := job.Snapshot()
	elapsed := time.Duration(0)
	if !snap.StartedAt.IsZero() {
		elapsed = snap.FinishedAt.Sub(snap.StartedAt)
	}
	metrics.ExportFinished(job.ID, string(state), elapsed)
	m.remember(snap)

	switch state {
	case StateCompleted:
		m.logger.Info("Export completed", "job_id", job.ID, "output", job.Request.Output, "size", humanize.Bytes(uint64(size)), "elapsed", elapsed)
	case StateCancelled:
		m.logger.Info("Export cancelled", "job_id", job.ID)
	default:
		m.logger.Error("Export failed", "job_id", job.ID, "error", err)
	}

	m.publish(events.ExportCompletedEvent{
		JobID:      job.ID,
		State:      string(state),
		Success:    state == StateCompleted,
		Message:    msg,
		OutputPath: job.Request.Output,
		SizeBytes:  size,
		Timestamp:  now(),
	})
	return err
}

func (m *Manager) remember(s Snapshot) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()
	if _, exists := m.history[s.ID]; !exists {
		m.order = append(m.order, s.ID)
	}
	m.history[s.ID] = s
	for len(m.order) > HistorySize {
		delete(m.history, m.order[0])
		m.order = m.order[1:]
	}
}

// export does the work of one job and returns the output size.
func (m *Manager) export(job *Job) (int64, error) {
	req := job.Request
	job.setRunning()
	metrics.ExportStarted()
	m.report(job, 0, "Preparing export")

	relevant, err := segments.Intersect(req.Segments, req.Window)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(req.Output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return 0, ErrOutputLocked
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	dir, err := os.MkdirTemp(m.cfg.TempDir, "export-"+job.ID[:8]+"-")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	job.track(dir)

	resolver := segments.Resolver{TempDir: dir, Track: job.track}
	inputs, err := resolver.Resolve(relevant, req.Cameras, req.StartMs)
	if err != nil {
		return 0, err
	}

	selected := req.SelectedCameras()
	cols, rows, err := filtergraph.Layout(len(selected))
	if err != nil {
		return 0, err
	}
	quality := req.Quality
	if req.Mobile {
		quality = encoders.QualityMobile
	}
	target, err := encoders.TargetFor(quality, req.FrontOnly())
	if err != nil {
		return 0, err
	}
	choice, err := m.selector.Select(job.ctx, encoders.Request{
		Quality:      req.Quality,
		FrontOnly:    req.FrontOnly(),
		Mobile:       req.Mobile,
		OutputWidth:  cols * target.Width,
		OutputHeight: rows * target.Height,
	})
	if err != nil {
		return 0, err
	}
	job.setChoice(choice)
	metrics.EncoderSelected(choice.Encoder, choice.Hardware)

	var overlay string
	if req.Minimap != nil {
		overlay, err = m.renderMinimap(job, dir)
		if err != nil {
			return 0, err
		}
	}

	if job.isCancelled() {
		return 0, ErrCancelled
	}

	duration := req.DurationSec()
	params := filtergraph.Params{
		Width:        target.Width,
		Height:       target.Height,
		FrameRate:    m.cfg.FrameRate,
		OverlayInput: -1,
	}
	cmd := ffmpeg.New().Global("-y")
	for i := 0; i+1 < len(choice.GlobalArgs); i += 2 {
		cmd.Global(choice.GlobalArgs[i], choice.GlobalArgs[i+1])
	}
	streams := filtergraph.Declare(cmd, selected, inputs, params, duration)
	if overlay != "" {
		params.OverlayInput = cmd.Input(overlay, ffmpeg.InputOptions{})
	}
	graph, err := filtergraph.Build(streams, params)
	if err != nil {
		return 0, err
	}
	cmd.FilterComplex(graph.Expr).
		Map(graph.Output).
		Options(choice.Args()...).
		Option("-r", strconv.Itoa(m.cfg.FrameRate)).
		Option("-t", ffmpeg.FormatSeconds(duration)).
		Option("-movflags", "+faststart").
		Option("-pix_fmt", "yuv420p").
		Output(req.Output)

	args, err := cmd.Args()
	if err != nil {
		return 0, err
	}

	m.logger.Info("Starting export",
		"job_id", job.ID,
		"segments", len(relevant),
		"inputs", len(inputs),
		"cameras", len(selected),
		"encoder", choice.Encoder,
		"hardware", choice.Hardware,
		"size", fmt.Sprintf("%dx%d", graph.Width(target.Width), graph.Height(target.Height)))
	m.logger.Debug("Encoder command", "job_id", job.ID, "command", cmd.String())

	return m.encode(job, args, duration, overlay != "")
}

// encode spawns the encoder and waits for it. Progress comes from the
// time= token on stderr.
func (m *Manager) encode(job *Job, args []string, durationSec float64, withMinimap bool) (int64, error) {
	total := time.Duration(durationSec * float64(time.Second))
	tail := &process.Tail{}
	collector := collectors.NewFFmpegCollector(job.ID)
	defer collector.Stop()

	progress := process.OutputHandlerFunc(func(source, line string) {
		if source != "stderr" {
			return
		}
		elapsed, ok := ffmpeg.ParseProgressTime(line)
		if !ok {
			return
		}
		p := ffmpeg.Percent(elapsed, total)
		if withMinimap {
			p = MinimapShare + p*(ffmpeg.MaxRunningPercent-MinimapShare)/ffmpeg.MaxRunningPercent
		}
		m.report(job, p, fmt.Sprintf("Encoding %d%%", p))
	})

	argv := append([]string{m.cfg.FFmpegPath}, args...)
	proc := process.NewProcessWithOutput(job.ID, argv, m.logger, process.Handlers{progress, tail, collector})
	proc.SetSplit(ffmpeg.ScanLinesOrCR)
	proc.SetLogParser(m.logger, ffmpeg.ParseLogLevel)

	if err := job.start(proc); err != nil {
		if errors.Is(err, ErrCancelled) {
			return 0, err
		}
		return 0, &SpawnError{Err: err}
	}

	code := proc.Wait()
	if job.isCancelled() {
		return 0, ErrCancelled
	}
	if code != 0 {
		return 0, &EncodeError{ExitCode: code, Tail: tail.String()}
	}

	info, err := os.Stat(job.Request.Output)
	if err != nil {
		return 0, fmt.Errorf("encoder produced no output: %w", err)
	}
	return info.Size(), nil
}

// renderMinimap builds the basemap and renders the overlay track into dir.
func (m *Manager) renderMinimap(job *Job, dir string) (string, error) {
	req := job.Request
	mm := req.Minimap
	width, height := mm.Width, mm.Height
	if width <= 0 || height <= 0 {
		width, height = m.cfg.MinimapWidth, m.cfg.MinimapHeight
	}

	m.report(job, 0, "Building map background")
	bg, err := m.maps.Build(job.ctx, mm.Path, width, height)
	if err != nil {
		if job.ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", err
	}

	out := filepath.Join(dir, "minimap.mov")
	job.track(out)

	track := minimap.Track{
		Path:     mm.Path,
		Timeline: mm.Timeline,
		StartMs:  req.StartMs + mm.TimelineOffsetMs,
		Duration: time.Duration(req.EndMs-req.StartMs) * time.Millisecond,
		Width:    width,
		Height:   height,
		Output:   out,
	}
	err = m.renderer.Render(job.ctx, m.newSurface(bg), track, func(percent, done, total int) {
		m.publish(events.MinimapProgressEvent{
			JobID:      job.ID,
			Percentage: percent,
			Frame:      done,
			Frames:     total,
			Timestamp:  now(),
		})
		p := percent * MinimapShare / 100
		m.report(job, p, fmt.Sprintf("Rendering minimap %d%%", percent))
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// report advances job progress and publishes it when it moved.
func (m *Manager) report(job *Job, percent int, msg string) {
	if !job.advance(percent, msg) && percent != 0 {
		return
	}
	m.publish(events.ExportProgressEvent{
		JobID:      job.ID,
		Percentage: job.Snapshot().Progress,
		Message:    msg,
		Timestamp:  now(),
	})
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
