// Package logging defines the structured logger used throughout servicetest.
//
// The Logger interface uses variadic key-value pairs:
//
//	logger.Info("Service started", "service", "orders", "stage", "announce")
//
// A *slog.Logger satisfies Logger directly, so most callers can pass
// slog.Default() or a logger built from their own handler.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Logger defines the interface for harness logging.
//
// All harness operations (container creation, lifecycle stage transitions,
// module resolution, etc.) are logged using this interface, so test suites
// can control how harness logs appear.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	// Used for diagnostics such as optional modules that could not be resolved.
	Debug(msg string, args ...any)
}

// Default returns a text logger writing to stderr at warn level. Harness
// chatter below warn is rarely useful in a passing test run.
func Default() Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// testingLogger routes log records to testing.TB so they only show up for
// failing or verbose tests.
type testingLogger struct {
	t testing.TB
}

// NewTesting returns a Logger that writes through t.Logf, prefixed with the
// caller's file and line.
func NewTesting(t testing.TB) Logger {
	return &testingLogger{t: t}
}

func (l *testingLogger) callerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	relPath, err := filepath.Rel(wd, file)
	if err != nil {
		relPath = file
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

func (l *testingLogger) log(level, caller, msg string, args []any) {
	l.t.Helper()
	if len(args) == 0 {
		l.t.Logf("%s [%s] %s", level, caller, msg)
		return
	}
	l.t.Logf("%s [%s] %s %v", level, caller, msg, args)
}

func (l *testingLogger) Info(msg string, args ...any) {
	l.log("INFO", l.callerInfo(), msg, args)
}

func (l *testingLogger) Error(msg string, args ...any) {
	l.log("ERROR", l.callerInfo(), msg, args)
}

func (l *testingLogger) Warn(msg string, args ...any) {
	l.log("WARN", l.callerInfo(), msg, args)
}

func (l *testingLogger) Debug(msg string, args ...any) {
	l.log("DEBUG", l.callerInfo(), msg, args)
}
