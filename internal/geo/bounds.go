package geo

import (
	"errors"
	"math"
)

// Padding applied around a GPS path before picking tiles.
const (
	PaddingFactor = 0.15
	// MinPaddingDeg keeps a stationary path from collapsing to a point.
	MinPaddingDeg = 0.001
)

// ErrEmptyPath is returned when bounds are requested for no points.
var ErrEmptyPath = errors.New("geo: empty path")

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf returns the tight bounding box of path.
func BoundsOf(path []Point) (Bounds, error) {
	if len(path) == 0 {
		return Bounds{}, ErrEmptyPath
	}
	b := Bounds{
		MinLat: path[0].Lat, MaxLat: path[0].Lat,
		MinLon: path[0].Lon, MaxLon: path[0].Lon,
	}
	for _, p := range path[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, nil
}

// Pad grows each side by factor times the span on that axis, never by less
// than minPad degrees.
func (b Bounds) Pad(factor, minPad float64) Bounds {
	padLat := math.Max((b.MaxLat-b.MinLat)*factor, minPad)
	padLon := math.Max((b.MaxLon-b.MinLon)*factor, minPad)
	return Bounds{
		MinLat: b.MinLat - padLat,
		MaxLat: b.MaxLat + padLat,
		MinLon: b.MinLon - padLon,
		MaxLon: b.MaxLon + padLon,
	}
}

// PaddedBounds is BoundsOf followed by the standard padding.
func PaddedBounds(path []Point) (Bounds, error) {
	b, err := BoundsOf(path)
	if err != nil {
		return Bounds{}, err
	}
	return b.Pad(PaddingFactor, MinPaddingDeg), nil
}

// TileRange is an inclusive rectangle of tiles at one zoom level.
type TileRange struct {
	Zoom int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

// RangeFor returns the tiles covering b at zoom. Tile rows grow southward so
// the north edge gives MinY.
func RangeFor(b Bounds, zoom int) TileRange {
	minX, minY := LatLonToTile(b.MaxLat, b.MinLon, zoom)
	maxX, maxY := LatLonToTile(b.MinLat, b.MaxLon, zoom)
	return TileRange{Zoom: zoom, MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}
}

// Cols returns the number of tile columns.
func (r TileRange) Cols() int { return r.MaxX - r.MinX + 1 }

// Rows returns the number of tile rows.
func (r TileRange) Rows() int { return r.MaxY - r.MinY + 1 }

// Tiles lists the range in row-major order.
func (r TileRange) Tiles() []Tile {
	tiles := make([]Tile, 0, r.Cols()*r.Rows())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			tiles = append(tiles, Tile{X: x, Y: y, Z: r.Zoom})
		}
	}
	return tiles
}

// Bounds returns the geographic extent of the tile edges. This is wider than
// the bounds the range was built from.
func (r TileRange) Bounds() Bounds {
	nw := TileToLatLon(r.MinX, r.MinY, r.Zoom)
	se := TileToLatLon(r.MaxX+1, r.MaxY+1, r.Zoom)
	return Bounds{MinLat: se.Lat, MaxLat: nw.Lat, MinLon: nw.Lon, MaxLon: se.Lon}
}

// SelectZoom walks from MaxZoom down to MinZoom and returns the first level
// where b spans between 1 and MaxTilesPerAxis tiles on both axes.
func SelectZoom(b Bounds) int {
	for z := MaxZoom; z >= MinZoom; z-- {
		r := RangeFor(b, z)
		if r.Cols() >= 1 && r.Cols() <= MaxTilesPerAxis && r.Rows() >= 1 && r.Rows() <= MaxTilesPerAxis {
			return z
		}
	}
	return FallbackZoom
}

// Projection maps coordinates onto a raster that exactly covers a tile range,
// stretched to width x height.
type Projection struct {
	Range  TileRange
	Width  int
	Height int
}

// Pixel returns the raster position of p. Points outside the range map
// outside the raster.
func (pr Projection) Pixel(p Point) (x, y float64) {
	fx, fy := FractionalTile(p.Lat, p.Lon, pr.Range.Zoom)
	x = (fx - float64(pr.Range.MinX)) / float64(pr.Range.Cols()) * float64(pr.Width)
	y = (fy - float64(pr.Range.MinY)) / float64(pr.Range.Rows()) * float64(pr.Height)
	return x, y
}
