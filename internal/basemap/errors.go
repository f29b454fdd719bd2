package basemap

import (
	"fmt"

	"github.com/smazurov/sentryexport/internal/geo"
)

// TileError reports a failed tile request. Either Status is set (non-200
// response) or Timeout is true; Err carries the underlying cause otherwise.
type TileError struct {
	Tile    geo.Tile
	Status  int
	Timeout bool
	Err     error
}

func (e *TileError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("tile %s: timed out", e.Tile)
	case e.Status != 0:
		return fmt.Sprintf("tile %s: http status %d", e.Tile, e.Status)
	default:
		return fmt.Sprintf("tile %s: %v", e.Tile, e.Err)
	}
}

func (e *TileError) Unwrap() error { return e.Err }
