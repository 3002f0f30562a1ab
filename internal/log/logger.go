// Package log wraps a shared logrus logger. Because the terminal belongs
// to the presenter, nothing is ever written to stdout: output goes to the
// activity log file in the cache directory and to an in-memory ring that
// the log pane renders.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetDebug toggles debug-level output.
func SetDebug(debug bool) {
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// ToFile routes output to the given file, appending.
func ToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return nil
}

// ToWriter routes output to an arbitrary writer, used by tests and by the
// worker subcommand (stderr, captured by the parent).
func ToWriter(w io.Writer) {
	logger.SetOutput(w)
}

// Info logs a formatted message.
func Info(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Warn logs a formatted warning.
func Warn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Error logs a message with trailing values, usually an error.
func Error(msg string, args ...interface{}) {
	logger.Errorf(msg+": %v", args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return logger.WithFields(logrus.Fields(fields))
}

// Line is one captured log record.
type Line struct {
	Time    time.Time
	Level   logrus.Level
	Message string
}

// Ring is a bounded in-memory capture of recent log lines, installed as a
// logrus hook so the TUI log pane sees the same stream as the file.
type Ring struct {
	mu    sync.Mutex
	lines []Line
	limit int
	seq   uint64
}

// NewRing installs and returns a ring keeping the last limit lines.
func NewRing(limit int) *Ring {
	r := &Ring{limit: limit}
	logger.AddHook(r)
	return r
}

// Levels implements logrus.Hook.
func (r *Ring) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (r *Ring) Fire(entry *logrus.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Line{Time: entry.Time, Level: entry.Level, Message: entry.Message})
	if len(r.lines) > r.limit {
		r.lines = r.lines[len(r.lines)-r.limit:]
	}
	r.seq++
	return nil
}

// Lines returns a copy of the captured lines, oldest first.
func (r *Ring) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Seq increases with every captured line; the presenter compares it to
// decide whether the log pane needs redrawing.
func (r *Ring) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
