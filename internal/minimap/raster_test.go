package minimap

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/smazurov/sentryexport/internal/basemap"
	"github.com/smazurov/sentryexport/internal/geo"
)

func testBackground(w, h int) *basemap.Background {
	r := geo.RangeFor(geo.Bounds{MinLat: 37.77, MaxLat: 37.78, MinLon: -122.42, MaxLon: -122.41}, 15)
	return &basemap.Background{
		Image:  image.NewRGBA(image.Rect(0, 0, w, h)),
		Bounds: r.Bounds(),
		Zoom:   15,
		Range:  r,
	}
}

func center(bg *basemap.Background) geo.Point {
	return geo.Point{
		Lat: (bg.Bounds.MinLat + bg.Bounds.MaxLat) / 2,
		Lon: (bg.Bounds.MinLon + bg.Bounds.MaxLon) / 2,
	}
}

func waitReady(t *testing.T, s Surface, seq uint64) ReadyEvent {
	t.Helper()
	select {
	case ev := <-s.Ready():
		if ev.Seq != seq {
			t.Fatalf("ready seq = %d, want %d", ev.Seq, seq)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ready")
		return ReadyEvent{}
	}
}

func TestRasterSurfaceRendersMarker(t *testing.T) {
	bg := testBackground(200, 200)
	s := NewRasterSurface(bg, DefaultStyle)
	defer s.Close()

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	c := center(bg)
	if err := s.Send(SeedTimeline{Samples: []Sample{{TimeMs: 0, Lat: c.Lat, Lon: c.Lon}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(RenderAt{Seq: 1, AtMs: 0}); err != nil {
		t.Fatal(err)
	}
	if ev := waitReady(t, s, 1); ev.Err != nil {
		t.Fatalf("render error: %v", ev.Err)
	}

	img, err := s.Capture()
	if err != nil {
		t.Fatalf("Capture() error: %v", err)
	}
	x, y := bg.Projection().Pixel(c)
	if got := img.RGBAAt(int(x), int(y)); got != DefaultStyle.MarkerColor {
		t.Errorf("marker pixel = %+v, want %+v", got, DefaultStyle.MarkerColor)
	}
	if got := img.RGBAAt(2, 2); got != (color.RGBA{}) {
		t.Errorf("corner pixel = %+v, want background", got)
	}
}

func TestRasterSurfaceDrawsRoute(t *testing.T) {
	bg := testBackground(200, 200)
	s := NewRasterSurface(bg, Style{RouteColor: color.RGBA{G: 255, A: 255}, RouteWidth: 4, MarkerSize: 0})
	defer s.Close()
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	west := geo.Point{Lat: center(bg).Lat, Lon: bg.Bounds.MinLon + 0.001}
	east := geo.Point{Lat: center(bg).Lat, Lon: bg.Bounds.MaxLon - 0.001}
	_ = s.Send(SeedPath{Path: []geo.Point{west, east}})
	_ = s.Send(SeedTimeline{Samples: []Sample{{TimeMs: 0, Lat: west.Lat, Lon: west.Lon}}})
	_ = s.Send(RenderAt{Seq: 7, AtMs: 0})
	waitReady(t, s, 7)

	img, _ := s.Capture()
	x, y := bg.Projection().Pixel(center(bg))
	if got := img.RGBAAt(int(x), int(y)); got.G != 255 {
		t.Errorf("route pixel = %+v, want green", got)
	}
}

func TestRasterSurfaceWithoutTimeline(t *testing.T) {
	s := NewRasterSurface(testBackground(50, 50), DefaultStyle)
	defer s.Close()
	_ = s.Load(context.Background())
	_ = s.Send(RenderAt{Seq: 1})
	if ev := waitReady(t, s, 1); ev.Err == nil {
		t.Error("expected error without timeline")
	}
}

func TestRasterSurfaceClose(t *testing.T) {
	s := NewRasterSurface(testBackground(50, 50), DefaultStyle)
	_ = s.Load(context.Background())
	_ = s.Close()
	_ = s.Close()

	if err := s.Send(RenderAt{Seq: 1}); err != ErrSurfaceClosed {
		t.Errorf("Send after Close = %v, want ErrSurfaceClosed", err)
	}
	if _, err := s.Capture(); err != ErrSurfaceClosed {
		t.Errorf("Capture after Close = %v, want ErrSurfaceClosed", err)
	}
}

func TestRasterSurfaceLoadWithoutBackground(t *testing.T) {
	s := NewRasterSurface(nil, DefaultStyle)
	if err := s.Load(context.Background()); err == nil {
		t.Error("expected error without background")
	}
}
