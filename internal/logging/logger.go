// Package logging provides structured logging for cellcore.
//
// It wraps log/slog with a small level enum and a Config so the CLI and the
// HTTP server build their loggers the same way. The core package only ever
// sees the *slog.Logger returned by Slog.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is the minimum severity a logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel accepts the level names case-insensitively. "warning" is an
// alias for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Config configures a Logger
type Config struct {
	// Level is the minimum level emitted. Defaults to LevelInfo.
	Level Level

	// Service is attached to every record as the "service" attribute
	// when non-empty.
	Service string

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// Quiet discards all output.
	Quiet bool

	// Output is where records are written. Defaults to os.Stderr.
	Output io.Writer
}

// Logger is a leveled structured logger
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a logger from config
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	switch {
	case config.Quiet:
		handler = slog.DiscardHandler
	case config.JSON:
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	return &Logger{
		slog:   slog.New(handler),
		config: config,
	}
}

// Default returns an info-level text logger on stderr
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "cellcore",
	})
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a logger that adds args to every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// Slog exposes the underlying *slog.Logger for packages that accept one
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Level returns the configured minimum level
func (l *Logger) Level() Level {
	return l.config.Level
}
