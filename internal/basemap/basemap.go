// Package basemap builds the dark map raster behind the minimap: it picks a
// zoom for a GPS path, downloads the covering tiles, stitches and themes them
// and reports the geographic bounds of the result.
package basemap

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // some providers serve jpeg tiles
	_ "image/png"
	"net/http"
	"os"
	"time"

	"github.com/smazurov/sentryexport/internal/geo"
	"github.com/smazurov/sentryexport/internal/logging"
	"github.com/smazurov/sentryexport/internal/version"
)

// Options configures a Builder.
type Options struct {
	URL       string        // template with {z}, {x} and {y}
	UserAgent string        // required by most providers
	Timeout   time.Duration // per tile
	Delay     time.Duration // between tile requests
	TempDir   string        // parent of the per-build tile directory
}

func (o Options) withDefaults() Options {
	if o.URL == "" {
		o.URL = DefaultURL
	}
	if o.UserAgent == "" {
		o.UserAgent = version.UserAgent()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	return o
}

// Background is a themed map raster and the area it covers.
type Background struct {
	Image *image.RGBA
	// Bounds are the tile edges, wider than the padded path bounds.
	Bounds geo.Bounds
	Zoom   int
	Range  geo.TileRange
}

// Projection maps coordinates onto the background image.
func (bg *Background) Projection() geo.Projection {
	b := bg.Image.Bounds()
	return geo.Projection{Range: bg.Range, Width: b.Dx(), Height: b.Dy()}
}

// Builder builds backgrounds. It is safe for concurrent use; requests from
// concurrent builds are not coordinated.
type Builder struct {
	opts   Options
	client *http.Client
	logger logging.Logger
}

// NewBuilder creates a builder. A nil client uses a fresh http.Client.
func NewBuilder(opts Options, client *http.Client) *Builder {
	if client == nil {
		client = &http.Client{}
	}
	return &Builder{
		opts:   opts.withDefaults(),
		client: client,
		logger: logging.GetLogger("basemap"),
	}
}

// Build fetches and renders the background for path at width x height.
// Any tile failure fails the build. Downloaded tiles are always removed.
func (b *Builder) Build(ctx context.Context, path []geo.Point, width, height int) (*Background, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid background size %dx%d", width, height)
	}
	padded, err := geo.PaddedBounds(path)
	if err != nil {
		return nil, err
	}
	zoom := geo.SelectZoom(padded)
	tiles := geo.RangeFor(padded, zoom)

	b.logger.Info("Building basemap",
		"zoom", zoom,
		"cols", tiles.Cols(),
		"rows", tiles.Rows(),
		"points", len(path))

	dir, err := os.MkdirTemp(b.opts.TempDir, "tiles-*")
	if err != nil {
		return nil, fmt.Errorf("create tile dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			b.logger.Warn("Failed to remove tile dir", "dir", dir, "error", rmErr)
		}
	}()

	files := make(map[geo.Tile]string, tiles.Cols()*tiles.Rows())
	for i, t := range tiles.Tiles() {
		if i > 0 && b.opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.opts.Delay):
			}
		}
		file, err := b.fetchTile(ctx, t, dir)
		if err != nil {
			b.logger.Error("Tile download failed", "tile", t.String(), "error", err)
			return nil, err
		}
		files[t] = file
	}

	raster, err := Stitch(tiles, files)
	if err != nil {
		return nil, err
	}
	ApplyTheme(raster)

	return &Background{
		Image:  Scale(raster, width, height),
		Bounds: tiles.Bounds(),
		Zoom:   zoom,
		Range:  tiles,
	}, nil
}

// Stitch decodes the tile files of r into one raster. A single tile is used
// as is; multiple tiles are placed on a black canvas at their grid offset.
func Stitch(r geo.TileRange, files map[geo.Tile]string) (*image.RGBA, error) {
	if r.Cols() == 1 && r.Rows() == 1 {
		t := geo.Tile{X: r.MinX, Y: r.MinY, Z: r.Zoom}
		img, err := decodeTile(files[t])
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", t, err)
		}
		return toRGBA(img), nil
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.Cols()*geo.TileSize, r.Rows()*geo.TileSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(image.Black), image.Point{}, draw.Src)

	for _, t := range r.Tiles() {
		img, err := decodeTile(files[t])
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", t, err)
		}
		xOff := (t.X - r.MinX) * geo.TileSize
		yOff := (t.Y - r.MinY) * geo.TileSize
		draw.Draw(canvas, image.Rect(xOff, yOff, xOff+geo.TileSize, yOff+geo.TileSize), img, img.Bounds().Min, draw.Src)
	}
	return canvas, nil
}

func decodeTile(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("missing tile file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}
