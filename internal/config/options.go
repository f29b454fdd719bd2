package config

import (
	"time"

	"github.com/smazurov/sentryexport/internal/logging"
)

// Options is the flat settings struct shared by the server and the CLI
// subcommands. Tags drive humacli flags, TOML keys and env overrides.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Access-Control-Allow-Origin for the API" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Authentication settings
	AuthUsername string `help:"Basic auth username" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Encoder binary
	FFmpegPath string `help:"Path to ffmpeg (auto-detected when empty)" toml:"ffmpeg.path" env:"FFMPEG_PATH"`

	// Export settings
	ExportTempDir        string `help:"Directory for job temp files" toml:"export.temp_dir" env:"EXPORT_TEMP_DIR"`
	ExportFrameRate      int    `help:"Output frame rate" default:"36" toml:"export.frame_rate" env:"EXPORT_FRAME_RATE"`
	ExportDefaultQuality string `help:"Quality tier used when a request has none" default:"high" toml:"export.default_quality" env:"EXPORT_DEFAULT_QUALITY"`

	// Basemap tile settings
	TilesURL       string `help:"Tile URL template" default:"https://tile.openstreetmap.org/{z}/{x}/{y}.png" toml:"tiles.url" env:"TILES_URL"`
	TilesUserAgent string `help:"User-Agent sent to the tile host (defaults to the build version)" toml:"tiles.user_agent" env:"TILES_USER_AGENT"`
	TilesDelayMs   int    `help:"Delay between tile requests in milliseconds" default:"100" toml:"tiles.delay_ms" env:"TILES_DELAY_MS"`
	TilesTimeout   string `help:"Per-tile request timeout" default:"10s" toml:"tiles.timeout" env:"TILES_TIMEOUT"`

	// Minimap settings
	MinimapWidth        int    `help:"Minimap overlay width" default:"400" toml:"minimap.width" env:"MINIMAP_WIDTH"`
	MinimapHeight       int    `help:"Minimap overlay height" default:"400" toml:"minimap.height" env:"MINIMAP_HEIGHT"`
	MinimapLoadTimeout  string `help:"Render surface load timeout" default:"30s" toml:"minimap.load_timeout" env:"MINIMAP_LOAD_TIMEOUT"`
	MinimapFrameTimeout string `help:"Per-frame render timeout" default:"5s" toml:"minimap.frame_timeout" env:"MINIMAP_FRAME_TIMEOUT"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingExport   string `help:"Export logging level" default:"info" toml:"logging.export" env:"LOGGING_EXPORT"`
	LoggingEncoders string `help:"Encoders logging level" default:"info" toml:"logging.encoders" env:"LOGGING_ENCODERS"`
	LoggingMinimap  string `help:"Minimap logging level" default:"info" toml:"logging.minimap" env:"LOGGING_MINIMAP"`
	LoggingBasemap  string `help:"Basemap logging level" default:"info" toml:"logging.basemap" env:"LOGGING_BASEMAP"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// Logging returns the logging section as a logging.Config.
func (o *Options) Logging() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"export":   o.LoggingExport,
			"encoders": o.LoggingEncoders,
			"minimap":  o.LoggingMinimap,
			"basemap":  o.LoggingBasemap,
			"api":      o.LoggingAPI,
		},
	}
}

// Duration parses a duration option, returning fallback for empty or
// malformed values.
func Duration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Load builds Options from defaults, the file at path and the environment.
// The config watcher uses it as its loader.
func Load(path string) (Options, error) {
	var opts Options
	ApplyDefaults(&opts)
	opts.Config = path
	if err := LoadConfig(&opts, nil); err != nil {
		return Options{}, err
	}
	return opts, nil
}
