// Package geo implements the slippy-map tile math used to size and fetch the
// minimap background: lat/lon to tile conversion, zoom selection and
// bounds padding.
package geo

import (
	"fmt"
	"math"
)

// Zoom search range and fallback.
const (
	MaxZoom      = 18
	MinZoom      = 10
	FallbackZoom = 14

	// MaxTilesPerAxis is the widest tile rectangle zoom selection accepts.
	MaxTilesPerAxis = 4

	// TileSize is the edge length of a basemap tile in pixels.
	TileSize = 256
)

// MaxLatitude is the Web Mercator latitude limit.
const MaxLatitude = 85.0511287798066

// tileEpsilon absorbs float round-off when a coordinate sits exactly on a
// tile edge, so tile corners map back to their own tile. Near the poles the
// Mercator round trip loses about 1e-9 of a tile at zoom 18; 1e-6 of a tile
// is still well under a pixel.
const tileEpsilon = 1e-6

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat" toml:"lat"`
	Lon float64 `json:"lon" toml:"lon"`
}

// Tile addresses a Web Mercator tile.
type Tile struct {
	X int
	Y int
	Z int
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// FractionalTile returns the unclamped, unfloored tile coordinates of a
// point. The integer part is the tile, the fraction the position inside it.
func FractionalTile(lat, lon float64, zoom int) (fx, fy float64) {
	n := math.Exp2(float64(zoom))
	latRad := clamp(lat, -MaxLatitude, MaxLatitude) * math.Pi / 180
	fx = (lon + 180) / 360 * n
	fy = (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n
	return fx, fy
}

// LatLonToTile returns the tile containing the point, clamped to the valid
// range for the zoom level.
func LatLonToTile(lat, lon float64, zoom int) (x, y int) {
	fx, fy := FractionalTile(lat, lon, zoom)
	maxIndex := math.Exp2(float64(zoom)) - 1
	return int(clamp(math.Floor(fx+tileEpsilon), 0, maxIndex)),
		int(clamp(math.Floor(fy+tileEpsilon), 0, maxIndex))
}

// TileToLatLon returns the top-left (north-west) corner of a tile.
// x and y may equal 2^zoom to address the far edge of the last tile.
func TileToLatLon(x, y, zoom int) Point {
	n := math.Exp2(float64(zoom))
	lon := float64(x)/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/n)))
	return Point{Lat: latRad * 180 / math.Pi, Lon: lon}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
