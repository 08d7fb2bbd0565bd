package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Verbosity levels
const (
	LevelQuiet = iota // Default: only errors and warnings
	LevelInfo         // -v: cycle outcomes, schedule changes, counts
	LevelDebug        // -vv: API calls, retries, timing
	LevelTrace        // -vvv: full details, page cursors
)

// Custom slog levels mapped to our verbosity
const (
	slogLevelTrace = slog.Level(-8) // Below debug
)

var (
	mu         sync.Mutex
	verbosity  int
	logger     *slog.Logger
	output     io.Writer
	inProgress bool // tracks if we have an in-progress line
	progressOn bool // show progress lines below info level
)

// FileOptions configures rotating file output for long-running processes.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Initialize sets up the global logger with the specified verbosity level
func Initialize(level int, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	verbosity = level
	output = w

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel(level),
	})
	logger = slog.New(handler)
}

// InitializeFile sets up the global logger to write to a rotating log file.
// Progress output still goes to stderr.
func InitializeFile(level int, opts FileOptions) io.Closer {
	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	mu.Lock()
	defer mu.Unlock()

	verbosity = level
	output = os.Stderr
	logger = slog.New(slog.NewTextHandler(rotator, &slog.HandlerOptions{
		Level: slogLevel(level),
	}))
	return rotator
}

func slogLevel(level int) slog.Level {
	// Map our verbosity to slog levels
	switch {
	case level >= LevelTrace:
		return slogLevelTrace
	case level >= LevelDebug:
		return slog.LevelDebug
	case level >= LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// Logger returns the underlying slog logger for libraries that accept one.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Info logs at info level (-v)
func Info(msg string, args ...any) {
	if l := begin(LevelInfo); l != nil {
		l.Info(msg, args...)
	}
}

// Debug logs at debug level (-vv)
func Debug(msg string, args ...any) {
	if l := begin(LevelDebug); l != nil {
		l.Debug(msg, args...)
	}
}

// Trace logs at trace level (-vvv)
func Trace(msg string, args ...any) {
	if l := begin(LevelTrace); l != nil {
		l.Log(context.Background(), slogLevelTrace, msg, args...)
	}
}

// Warn logs at warn level (always visible)
func Warn(msg string, args ...any) {
	begin(LevelQuiet).Warn(msg, args...)
}

// Error logs at error level (always visible)
func Error(msg string, args ...any) {
	begin(LevelQuiet).Error(msg, args...)
}

// begin returns the logger if the level is enabled, clearing any progress line.
func begin(level int) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if verbosity < level {
		return nil
	}
	clearProgress()
	return logger
}

// SetProgress shows progress lines even in quiet mode.
func SetProgress(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	progressOn = enabled
}

func progressVisible() bool {
	return progressOn || verbosity >= LevelInfo
}

// Progress prints a progress message with carriage return (no newline)
// Only shown at info level or higher, or when enabled with SetProgress
func Progress(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if progressVisible() {
		inProgress = true
		_, _ = fmt.Fprintf(output, "\r"+format, args...)
	}
}

// ProgressDone completes a progress line with "done" and newline
func ProgressDone() {
	mu.Lock()
	defer mu.Unlock()
	if progressVisible() && inProgress {
		_, _ = fmt.Fprintln(output, " done")
		inProgress = false
	}
}

// ProgressClear clears the current progress line
func ProgressClear() {
	mu.Lock()
	defer mu.Unlock()
	if inProgress {
		_, _ = fmt.Fprint(output, "\r\033[K") // carriage return + clear to end of line
		inProgress = false
	}
}

// clearProgress ensures we don't write over a progress line. Callers hold mu.
func clearProgress() {
	if inProgress {
		_, _ = fmt.Fprintln(output) // just add a newline to preserve the progress
		inProgress = false
	}
}

// IsInfo returns true if info-level logging is enabled
func IsInfo() bool {
	return Verbosity() >= LevelInfo
}

// IsDebug returns true if debug-level logging is enabled
func IsDebug() bool {
	return Verbosity() >= LevelDebug
}

// IsTrace returns true if trace-level logging is enabled
func IsTrace() bool {
	return Verbosity() >= LevelTrace
}

// Verbosity returns the current verbosity level
func Verbosity() int {
	mu.Lock()
	defer mu.Unlock()
	return verbosity
}

// SetOutput changes the output writer (useful for testing)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func init() {
	// Default initialization with quiet mode to stderr
	output = os.Stderr
	verbosity = LevelQuiet
	logger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
