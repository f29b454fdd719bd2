package minimap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/vector"

	"github.com/smazurov/sentryexport/internal/basemap"
	"github.com/smazurov/sentryexport/internal/geo"
)

// Style controls how the raster surface draws.
type Style struct {
	RouteColor  color.RGBA
	RouteWidth  float32
	MarkerColor color.RGBA
	MarkerSize  float32 // tip to base, pixels
}

// DefaultStyle is a light route with a red marker.
var DefaultStyle = Style{
	RouteColor:  color.RGBA{R: 0x3e, G: 0xa6, B: 0xff, A: 0xff},
	RouteWidth:  3,
	MarkerColor: color.RGBA{R: 0xe8, G: 0x21, B: 0x27, A: 0xff},
	MarkerSize:  18,
}

// RasterSurface draws frames on a basemap background in its own goroutine.
type RasterSurface struct {
	bg    *basemap.Background
	style Style
	proj  geo.Projection

	inbox chan Message
	ready chan ReadyEvent
	quit  chan struct{}
	done  chan struct{}

	loadOnce  sync.Once
	closeOnce sync.Once

	mu       sync.Mutex
	static   *image.RGBA // background plus route
	frame    *image.RGBA
	timeline *Timeline
	closed   bool
}

// NewRasterSurface creates a surface over bg.
func NewRasterSurface(bg *basemap.Background, style Style) *RasterSurface {
	return &RasterSurface{
		bg:    bg,
		style: style,
		inbox: make(chan Message, 4),
		ready: make(chan ReadyEvent, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Load prepares the canvas and starts the render loop.
func (s *RasterSurface) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.bg == nil || s.bg.Image == nil {
		return errors.New("no background")
	}

	s.loadOnce.Do(func() {
		s.proj = s.bg.Projection()
		s.static = cloneRGBA(s.bg.Image)
		s.frame = cloneRGBA(s.static)
		go s.loop()
	})
	return nil
}

// Send queues a message for the render loop.
func (s *RasterSurface) Send(msg Message) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSurfaceClosed
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.quit:
		return ErrSurfaceClosed
	}
}

// Ready delivers one event per RenderAt.
func (s *RasterSurface) Ready() <-chan ReadyEvent {
	return s.ready
}

// Capture copies the last rendered frame.
func (s *RasterSurface) Capture() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSurfaceClosed
	}
	if s.frame == nil {
		return nil, errors.New("surface not loaded")
	}
	return cloneRGBA(s.frame), nil
}

// Close stops the render loop. It is safe to call more than once.
func (s *RasterSurface) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.quit)
	})
	return nil
}

func (s *RasterSurface) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

func (s *RasterSurface) handle(msg Message) {
	switch m := msg.(type) {
	case SeedPath:
		static := cloneRGBA(s.bg.Image)
		s.drawRoute(static, m.Path)
		s.mu.Lock()
		s.static = static
		s.mu.Unlock()
	case SeedTimeline:
		tl := NewTimeline(m.Samples)
		s.mu.Lock()
		s.timeline = tl
		s.mu.Unlock()
	case RenderAt:
		err := s.render(m.AtMs)
		select {
		case s.ready <- ReadyEvent{Seq: m.Seq, Err: err}:
		case <-s.quit:
		}
	}
}

func (s *RasterSurface) render(atMs int64) error {
	s.mu.Lock()
	static, tl := s.static, s.timeline
	s.mu.Unlock()

	if tl == nil {
		return errors.New("timeline not seeded")
	}
	frame := cloneRGBA(static)
	if p, heading, ok := tl.At(atMs); ok {
		x, y := s.proj.Pixel(p)
		s.drawMarker(frame, float32(x), float32(y), heading)
	}

	s.mu.Lock()
	s.frame = frame
	s.mu.Unlock()
	return nil
}

// drawRoute strokes the path as one quad per segment.
func (s *RasterSurface) drawRoute(dst *image.RGBA, path []geo.Point) {
	if len(path) < 2 {
		return
	}
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	half := s.style.RouteWidth / 2

	prevX, prevY := s.proj.Pixel(path[0])
	for _, p := range path[1:] {
		x, y := s.proj.Pixel(p)
		dx, dy := float32(x-prevX), float32(y-prevY)
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length > 0 {
			nx, ny := -dy/length*half, dx/length*half
			x0, y0, x1, y1 := float32(prevX), float32(prevY), float32(x), float32(y)
			z.MoveTo(x0+nx, y0+ny)
			z.LineTo(x1+nx, y1+ny)
			z.LineTo(x1-nx, y1-ny)
			z.LineTo(x0-nx, y0-ny)
			z.ClosePath()
		}
		prevX, prevY = x, y
	}
	z.Draw(dst, b, image.NewUniform(s.style.RouteColor), image.Point{})
}

// drawMarker fills a triangle pointing along heading (degrees from north).
func (s *RasterSurface) drawMarker(dst *image.RGBA, cx, cy float32, heading float64) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())

	rad := heading * math.Pi / 180
	sin, cos := float32(math.Sin(rad)), float32(math.Cos(rad))
	size := s.style.MarkerSize
	// Local frame: tip up (negative y), base below the center.
	pts := [3][2]float32{
		{0, -size * 0.6},
		{size * 0.35, size * 0.4},
		{-size * 0.35, size * 0.4},
	}
	for i, p := range pts {
		x := cx + p[0]*cos - p[1]*sin
		y := cy + p[0]*sin + p[1]*cos
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(s.style.MarkerColor), image.Point{})
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// String describes the surface for logs.
func (s *RasterSurface) String() string {
	if s.bg == nil || s.bg.Image == nil {
		return "raster(unloaded)"
	}
	b := s.bg.Image.Bounds()
	return fmt.Sprintf("raster(%dx%d z%d)", b.Dx(), b.Dy(), s.bg.Zoom)
}
