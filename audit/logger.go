package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Logger appends records to a line-structured sink. Writes are serialized
// by an internal mutex so concurrent workers never interleave records.
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	file     *os.File // non-nil when the logger owns the sink
	closed   bool
	appended int64
}

// NewLogger creates a logger writing to w. The caller owns w's lifecycle.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// OpenFile creates a logger appending to the file at path, creating parent
// directories as needed. The file is opened append-only; existing records
// are preserved across runs.
func OpenFile(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("audit: create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("audit: open log file: %w", err)
	}

	return &Logger{w: f, file: f}, nil
}

// Append writes one record as a single JSON line. The write completes
// before Append returns.
func (l *Logger) Append(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoggerClosed
	}

	if _, err := l.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	l.appended++
	return nil
}

// Appended returns the number of records written by this logger instance.
func (l *Logger) Appended() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appended
}

// Close closes the underlying file when the logger owns it. Subsequent
// appends return ErrLoggerClosed.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
