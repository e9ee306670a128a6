// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
)

// messager describes an error that can report its own message without the chain.
type messager interface {
	Message() string
}

// ErrorEntry is one link of an error chain as written to the log.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// Logger implements ports.Logger using a slog JSON handler.
// The compiler owns stdout and stderr, so records go to the auxiliary log file.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	mu     sync.RWMutex
	closer io.Closer
}

var _ ports.Logger = (*Logger)(nil)

// New creates a Logger writing JSON records to w.
// If w is nil, os.Stderr is used.
func New(w io.Writer, level domain.LogLevel) *Logger {
	if w == nil {
		w = os.Stderr
	}
	lv := &slog.LevelVar{}
	lv.Set(slog.Level(level))
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})),
		level:  lv,
	}
}

// Open creates a Logger appending to the file at path.
func Open(path string, level domain.LogLevel) (*Logger, error) {
	//nolint:gosec // path comes from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.PrivateFilePerm)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open log file"), "path", path)
	}
	l := New(f, level)
	l.closer = f
	return l, nil
}

// SetOutput updates the logger's output destination.
// If w is nil, os.Stderr is used as the default.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l.level}))
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level domain.LogLevel) {
	l.level.Set(slog.Level(level))
}

// Close releases the log file, if the logger owns one.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg, args...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg, args...)
}

// Error logs an error with its cause chain and metadata flattened into attributes.
func (l *Logger) Error(err error, args ...any) {
	if err == nil {
		return
	}

	entries := collectErrorEntries(err)
	causes := make([]string, 0, len(entries))
	attrs := make([]any, 0, len(args)+4)
	attrs = append(attrs, args...)
	for _, e := range entries {
		causes = append(causes, e.Message)
		for k, v := range e.Metadata {
			attrs = append(attrs, slog.Any(k, v))
		}
	}
	attrs = append(attrs, slog.String("error", err.Error()), slog.Any("causes", causes))

	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Error("operation failed", attrs...)
}

// collectErrorEntries walks the error chain. zerr links contribute their own message and
// metadata; the first foreign error contributes its full message and ends the walk.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	current := err
	for current != nil {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error()})
			break
		}
		var meta map[string]any
		if z, ok := current.(*zerr.Error); ok {
			meta = z.Metadata()
		}
		if msg := m.Message(); msg != "" || len(meta) > 0 {
			entries = append(entries, ErrorEntry{Message: msg, Metadata: meta})
		}
		current = errors.Unwrap(current)
	}
	return entries
}
