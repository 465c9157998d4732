// Package logging builds the process-wide slog logger for the executables.
package logging

import (
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a JSON logger in production and a colourised tint logger
// otherwise. An empty level means info in production and debug elsewhere.
func New(w io.Writer, environment, level string) *slog.Logger {
	isProd := environment == "prod" || environment == "production"

	if level == "" {
		if isProd {
			level = "info"
		} else {
			level = "debug"
		}
	}
	lvl := ParseLevel(level)

	var h slog.Handler
	if isProd {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.New(h)
}

// Setup installs logger as the slog default and routes the standard log
// package through it.
func Setup(logger *slog.Logger) {
	slog.SetDefault(logger)

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(logger.Handler(), slog.LevelInfo).Writer())
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
