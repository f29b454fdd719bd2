package basemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/sentryexport/internal/geo"
	"github.com/smazurov/sentryexport/internal/metrics"
)

// Defaults for the tile provider.
const (
	DefaultURL     = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultTimeout = 10 * time.Second
	DefaultDelay   = 100 * time.Millisecond
)

// TileURL expands {z}, {x} and {y} in template.
func TileURL(template string, t geo.Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	).Replace(template)
}

// fetchTile downloads one tile into dir and returns the file path.
func (b *Builder) fetchTile(ctx context.Context, t geo.Tile, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	url := TileURL(b.opts.URL, t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &TileError{Tile: t, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", b.opts.UserAgent)
	req.Header.Set("Accept", "image/png,image/*")

	resp, err := b.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			metrics.TileFetched("timeout")
			return "", &TileError{Tile: t, Timeout: true, Err: err}
		}
		metrics.TileFetched("error")
		return "", &TileError{Tile: t, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TileFetched("http_error")
		return "", &TileError{Tile: t, Status: resp.StatusCode}
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%d_%d.png", t.Z, t.X, t.Y))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create tile file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		if isTimeout(ctx, err) {
			metrics.TileFetched("timeout")
			return "", &TileError{Tile: t, Timeout: true, Err: err}
		}
		metrics.TileFetched("error")
		return "", &TileError{Tile: t, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write tile file: %w", err)
	}

	metrics.TileFetched("ok")
	return path, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
