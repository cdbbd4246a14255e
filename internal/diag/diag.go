// Package diag is the append-only diagnostic log.
//
// Failures anywhere in the request path are recorded here as single lines:
//
//	[2024-05-01T12:00:00.000Z] Usuario.findById: ID inválido: "zzz" is not a document identifier
//
// Recording is fire-and-forget. Record never blocks the caller and never
// returns an error; a full buffer drops the entry and bumps a counter, and
// write failures are reported through slog only.
package diag

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/agenda-api/internal/metrics"
)

// TimeFormat renders timestamps as ISO-8601 UTC with milliseconds.
const TimeFormat = "2006-01-02T15:04:05.000Z"

const defaultBuffer = 256

// Sink receives diagnostic messages.
type Sink interface {
	Record(message string)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(message string)

func (f SinkFunc) Record(message string) { f(message) }

// Discard drops every message.
var Discard Sink = SinkFunc(func(string) {})

type entry struct {
	at      time.Time
	message string
}

// FileSink appends entries to a file from a single background writer.
type FileSink struct {
	file   *os.File
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	closed  bool
	entries chan entry
	done    chan struct{}

	dropped atomic.Uint64
}

var _ Sink = (*FileSink)(nil)

// Open creates the parent directory if needed and starts the writer.
func Open(path string, logger *slog.Logger) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("diag: creating log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diag: opening %s: %w", path, err)
	}

	s := &FileSink{
		file:    f,
		logger:  logger,
		now:     time.Now,
		entries: make(chan entry, defaultBuffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Record queues message with the current time.
func (s *FileSink) Record(message string) {
	e := entry{at: s.now(), message: message}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop()
		return
	}
	select {
	case s.entries <- e:
	default:
		s.drop()
	}
}

func (s *FileSink) drop() {
	s.dropped.Add(1)
	metrics.DiagnosticsDropped.Inc()
}

// Dropped returns how many entries were discarded.
func (s *FileSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close flushes queued entries and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	<-s.done
	return s.file.Close()
}

func (s *FileSink) run() {
	defer close(s.done)
	for e := range s.entries {
		s.logger.Warn("diagnostic", slog.String("message", e.message))

		line := Format(e.at, e.message)
		if _, err := s.file.WriteString(line); err != nil {
			s.logger.Error("diag: writing log entry failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// Format renders one log line, newline included.
func Format(at time.Time, message string) string {
	return fmt.Sprintf("[%s] %s\n", at.UTC().Format(TimeFormat), message)
}
