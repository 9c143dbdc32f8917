// Package logger builds the repeater's root structured logger.
//
// Every other package takes a *slog.Logger directly and calls
// log.With("component", ...) on it, so this package's only job is to
// construct that root logger from configuration: colorized console
// output for interactive use, plain JSON for production log shipping.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Config controls the root logger's level, output format, and
// destination writer.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a *slog.Logger per cfg. Format "json" gets slog's stock
// JSON handler (for log aggregators); anything else gets tint's
// colorized console handler, matching the texture of an interactive
// repeater console.
func New(cfg Config) *slog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level := parseLevel(cfg.Level)

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(tint.NewHandler(output, &tint.Options{Level: level}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent tags a logger with the subsystem emitting through it,
// the way every protocol package's Voice/Slot constructor does for
// itself ("NXDN", "P25", "DMR", "bridge", "peer:<name>", ...).
func WithComponent(log *slog.Logger, component string) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}
	return log.With("component", component)
}
