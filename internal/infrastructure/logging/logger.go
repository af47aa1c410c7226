package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
)

// Logger is a leveled, structured logger backed by zerolog.
//
// Every component in xComfort Core logs through the same four methods and
// passes context as alternating key/value pairs:
//
//	logger.Info("snapshot loaded", "devices", 42, "rooms", 6)
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	zl zerolog.Logger
}

// New creates a Logger from the logging section of config.yaml.
//
// Format "text" writes a human-readable console line, anything else writes
// one JSON object per line. Every record carries service and version.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newLogger(outputFor(cfg.Output), cfg.Format, parseLevel(cfg.Level), version)
}

func newLogger(w io.Writer, format string, level zerolog.Level, version string) *Logger {
	if strings.EqualFold(format, "text") {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "xcomfort").
		Str("version", version).
		Logger()
	return &Logger{zl: zl}
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps debug, info, warn/warning and error. Anything else is info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { write(l.zl.Debug(), msg, args) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { write(l.zl.Info(), msg, args) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { write(l.zl.Warn(), msg, args) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { write(l.zl.Error(), msg, args) }

// write is a no-op for a nil event, which zerolog returns for filtered levels.
func write(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	if len(args) > 0 {
		e = e.Fields(args)
	}
	e.Msg(msg)
}

// With returns a child Logger that adds args to every record.
//
//	bridgeLogger := logger.With("component", "bridge", "bridge_id", id)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{zl: l.zl.With().Fields(args).Logger()}
}

// Enabled reports whether records at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	return level >= l.zl.GetLevel() && l.zl.GetLevel() != zerolog.Disabled
}

// Default is the JSON/info/stdout logger used before config is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}

// Discard returns a logger that drops every record.
//
// Used by tests and by components constructed without a logger.
func Discard() *Logger {
	return &Logger{zl: zerolog.Nop()}
}
