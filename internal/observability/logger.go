// Package observability builds the logger, metrics and tracing of one CLI
// invocation.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

type LoggerOptions struct {
	// Debug enables V(1) lines: request tracing and per-service timings.
	Debug bool
	// Verbose enables informational lines.
	Verbose bool
	NoColor bool
}

// NewLogger returns a logr front-end over a tint console handler. Without
// Verbose or Debug only warnings and errors are printed.
func NewLogger(w io.Writer, opts LoggerOptions) logr.Logger {
	level := slog.LevelWarn
	switch {
	case opts.Debug:
		level = slog.LevelDebug
	case opts.Verbose:
		level = slog.LevelInfo
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor || !IsTerminal(w),
	})
	return logr.FromSlogHandler(handler)
}

// IsTerminal reports whether w is a character device such as an interactive
// terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
