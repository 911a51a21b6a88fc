// Package logging configures the process-wide slog logger.
//
// Usage:
//
//	logging.Setup("info", "text")  // colored tint output on stderr
//	logging.Setup("debug", "json") // JSON lines on stdout, for log shippers
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger. Unknown levels fall back to info and
// any format other than "json" uses tint.
func Setup(level, format string) {
	if format == "json" {
		slog.SetDefault(slog.New(NewJSONHandler(os.Stdout, ParseLevel(level))))
		return
	}
	slog.SetDefault(slog.New(NewTextHandler(os.Stderr, ParseLevel(level))))
}

// NewTextHandler returns a colored handler writing to w.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// NewJSONHandler returns a JSON handler writing to w.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
