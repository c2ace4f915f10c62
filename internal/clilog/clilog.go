// Package clilog provides the CLI's structured logger. The core
// library never logs; this exists solely for the cmd/crunchnat
// driver's progress and validation diagnostics, adapted from
// jhkimqd-chaos-utils/pkg/reporting/logger.go's zerolog wrapper, pared
// down to the levels and fields the CLI actually uses.
package clilog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level is a logging verbosity level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects console (human-readable) or JSON output.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing to out (os.Stderr if nil) at the given
// level and format.
func New(level Level, format Format, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	w := out
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: out, NoColor: false}
	}
	zl := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
	return &Logger{zl: zl}
}

func parseLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Info logs an informational message with optional key-value fields.
func (l *Logger) Info(msg string, kv ...interface{}) { l.event(l.zl.Info(), msg, kv) }

// Warn logs a warning message with optional key-value fields.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.event(l.zl.Warn(), msg, kv) }

// Error logs an error message with optional key-value fields.
func (l *Logger) Error(msg string, kv ...interface{}) { l.event(l.zl.Error(), msg, kv) }

func (l *Logger) event(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
