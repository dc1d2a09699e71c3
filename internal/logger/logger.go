package logger

import (
	"fmt"
	"io"
	"sync"
)

// Logger defines the interface for logging messages.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Noop returns a do-nothing Logger (null object pattern).
func Noop() Logger { return &noopLogger{} }

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StdLogger provides thread-safe leveled logging to an output writer.
type StdLogger struct {
	mu     *sync.Mutex // shared with loggers derived through With
	out    io.Writer
	quiet  bool
	prefix string
}

// NewStdLogger creates a new Logger that writes to the given writer.
// If quiet is true, Info messages are suppressed.
func NewStdLogger(out io.Writer, quiet bool) *StdLogger {
	return &StdLogger{
		mu:    &sync.Mutex{},
		out:   out,
		quiet: quiet,
	}
}

// With returns a logger that puts "prefix: " before every message, e.g. the
// file being processed. It shares the writer and lock with l.
func (l *StdLogger) With(prefix string) *StdLogger {
	p := prefix + ": "
	if l.prefix != "" {
		p = l.prefix + p
	}
	return &StdLogger{mu: l.mu, out: l.out, quiet: l.quiet, prefix: p}
}

func (l *StdLogger) write(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.out, "[%s] %s%s\n", level, l.prefix, fmt.Sprintf(format, args...))
}

// Info logs an informational message with [INFO] prefix.
func (l *StdLogger) Info(format string, args ...any) {
	if l.quiet {
		return
	}
	l.write("INFO", format, args...)
}

// Warn logs a warning with [WARN] prefix.
func (l *StdLogger) Warn(format string, args ...any) {
	l.write("WARN", format, args...)
}

// Error logs an error with [ERROR] prefix.
func (l *StdLogger) Error(format string, args ...any) {
	l.write("ERROR", format, args...)
}
