// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level tags a log entry.
type Level int

const (
	LevelError Level = -1 // fatal or failure conditions
	LevelInfo  Level = 0  // lifecycle and administrative events
	LevelLog   Level = 1  // routine traffic, e.g. client messages
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelInfo:
		return "INFO"
	case LevelLog:
		return "LOG"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// TimestampLayout renders as [DD / MM / YYYY - HH : MM : SS].
const TimestampLayout = "[02 / 01 / 2006 - 15 : 04 : 05]"

// Logger appends one timestamped line per call to a single sink.  It
// is safe for concurrent use; entries never interleave within a line.
type Logger struct {
	service string

	mu      sync.Mutex
	output  io.Writer
	mirror  io.Writer // optional tee, e.g. stderr in foreground mode
	errSink io.Writer // where the first write failure is reported
	closer  io.Closer
	now     func() time.Time

	writeErrors atomic.Int64
}

// NewLogger returns a Logger writing to w.  Tests use it with a
// bytes.Buffer as an in-memory sink.
func NewLogger(w io.Writer, service string) *Logger {
	return &Logger{
		service: service,
		output:  w,
		now:     time.Now,
	}
}

// OpenLogger opens (creating if needed) the log file at path in append
// mode, along with its parent directory.
func OpenLogger(path, service string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	l := NewLogger(f, service)
	l.closer = f
	return l, nil
}

// SetMirror tees every entry to w as well.  Pass nil to stop.
func (l *Logger) SetMirror(w io.Writer) {
	l.mu.Lock()
	l.mirror = w
	l.mu.Unlock()
}

// SetErrorSink sets where the first write failure is reported.
func (l *Logger) SetErrorSink(w io.Writer) {
	l.mu.Lock()
	l.errSink = w
	l.mu.Unlock()
}

// SetClock replaces the timestamp source.
func (l *Logger) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Service returns the name stamped on every entry.
func (l *Logger) Service() string { return l.service }

// WriteErrors returns how many entries failed to reach the sink.
func (l *Logger) WriteErrors() int64 { return l.writeErrors.Load() }

// Error logs at ERROR.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Write(LevelError, fmt.Sprintf(format, args...))
}

// Info logs at INFO.
func (l *Logger) Info(format string, args ...interface{}) {
	l.Write(LevelInfo, fmt.Sprintf(format, args...))
}

// Log logs at LOG.
func (l *Logger) Log(format string, args ...interface{}) {
	l.Write(LevelLog, fmt.Sprintf(format, args...))
}

// Write appends a single entry.  A failing sink never panics or
// returns to the caller; the failure is counted instead.
func (l *Logger) Write(level Level, msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	line := l.format(level, msg)
	if l.output != nil {
		if _, err := l.output.Write(line); err != nil {
			if l.writeErrors.Add(1) == 1 && l.errSink != nil {
				fmt.Fprintf(l.errSink, "%s: log write failed: %v\n", l.service, err)
			}
		}
	}
	if l.mirror != nil {
		l.mirror.Write(line) //nolint:errcheck
	}
}

// Close closes the underlying file, if the Logger owns one.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.output = nil
	return err
}

func (l *Logger) format(level Level, msg string) []byte {
	// One call, one line.
	msg = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(msg)

	var b strings.Builder
	b.Grow(len(TimestampLayout) + len(l.service) + len(msg) + 24)
	b.WriteString(l.now().Format(TimestampLayout))
	b.WriteString(" [ ")
	b.WriteString(level.String())
	b.WriteString(" ] - ")
	b.WriteString(l.service)
	b.WriteString(": ")
	b.WriteString(msg)
	b.WriteByte('\n')
	return []byte(b.String())
}
