// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used across the packet
// worker. It is a thin wrapper around charmbracelet/log so call sites stay
// stable if the backing library is ever swapped.
package logging

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Config controls logger construction.
type Config struct {
	Level      string // debug, info, warn, error
	ReportTime bool
	Prefix     string
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		ReportTime: true,
	}
}

// Logger is a structured, leveled logger with key-value fields.
type Logger struct {
	l *charmlog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: cfg.ReportTime,
		Prefix:          cfg.Prefix,
	})
	l.SetLevel(parseLevel(cfg.Level))
	return &Logger{l: l}
}

func parseLevel(s string) charmlog.Level {
	switch s {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// With returns a child logger with additional fields bound to every line.
func (lg *Logger) With(kv ...any) *Logger {
	return &Logger{l: lg.l.With(kv...)}
}

// Debug logs at debug level.
func (lg *Logger) Debug(msg string, kv ...any) { lg.l.Debug(msg, kv...) }

// Info logs at info level.
func (lg *Logger) Info(msg string, kv ...any) { lg.l.Info(msg, kv...) }

// Warn logs at warn level.
func (lg *Logger) Warn(msg string, kv ...any) { lg.l.Warn(msg, kv...) }

// Error logs at error level.
func (lg *Logger) Error(msg string, kv ...any) { lg.l.Error(msg, kv...) }

// Fatal logs a construction-fatal condition at error level with a fatal
// marker field. It deliberately does not call os.Exit: per the error
// taxonomy in the specification, construction-fatal conditions abort
// worker startup through a returned error, not by a library panicking
// the process out from under its caller.
func (lg *Logger) Fatal(msg string, kv ...any) {
	lg.l.Error(msg, append([]any{"fatal", true}, kv...)...)
}
