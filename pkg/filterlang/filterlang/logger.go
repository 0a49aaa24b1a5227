package filterlang

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel parses debug, info, warn (or warning) and error, in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the leveled logger used by the engine, the evaluator and the
// ccnorm providers.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// writerLogger writes "[LEVEL] message" lines to an io.Writer
type writerLogger struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
}

// WriterLogger returns a logger that writes messages at or above level to w.
func WriterLogger(w io.Writer, level Level) Logger {
	return &writerLogger{w: w, level: level}
}

// StderrLogger returns a logger that writes to stderr (default for the CLI)
func StderrLogger(level Level) Logger {
	return WriterLogger(os.Stderr, level)
}

func (l *writerLogger) logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, formatLine(level, format, args...))
}

func (l *writerLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *writerLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *writerLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *writerLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// BufferedLogger captures log output for later retrieval
type BufferedLogger struct {
	mu    sync.Mutex
	lines []string
	level Level
}

// NewBufferedLogger creates a buffered logger keeping messages at or above
// level.
func NewBufferedLogger(level Level) *BufferedLogger {
	return &BufferedLogger{
		lines: make([]string, 0),
		level: level,
	}
}

func (l *BufferedLogger) logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, formatLine(level, format, args...))
}

func (l *BufferedLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *BufferedLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *BufferedLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *BufferedLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// String returns all captured output as a single string
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := strings.Join(l.lines, "\n")
	if len(l.lines) > 0 {
		result += "\n"
	}
	return result
}

// Lines returns all captured log lines
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Make a copy to avoid race conditions
	result := make([]string, len(l.lines))
	copy(result, l.lines)
	return result
}

// Reset clears all captured output
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = l.lines[:0]
}

// nopLogger discards all output
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// NopLogger returns a logger that discards all output
func NopLogger() Logger {
	return nopLogger{}
}

func formatLine(level Level, format string, args ...any) string {
	return "[" + level.String() + "] " + fmt.Sprintf(format, args...)
}
