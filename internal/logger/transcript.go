package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ajsharma/doctest_runner/internal/events"
)

const (
	// DefaultBufferSize is the default buffer size for the transcript writer (8 KB).
	DefaultBufferSize = 8 * 1024

	// DefaultFlushInterval is the default interval between automatic flushes.
	DefaultFlushInterval = 100 * time.Millisecond
)

// ErrClosed is returned when writing to a transcript that has been closed.
var ErrClosed = errors.New("transcript is closed")

// Transcript appends the events of one run to a JSONL file.
// The file is created lazily on the first write.
type Transcript struct {
	baseDir   string
	sessionID string

	file       *os.File
	writer     *bufio.Writer
	flushTimer *time.Timer
	closed     bool
	mu         sync.Mutex

	flushInterval time.Duration
	bufferSize    int
}

// NewTranscript creates a transcript for sessionID under baseDir.
func NewTranscript(baseDir, sessionID string) *Transcript {
	return &Transcript{
		baseDir:       baseDir,
		sessionID:     sessionID,
		flushInterval: DefaultFlushInterval,
		bufferSize:    DefaultBufferSize,
	}
}

// SetFlushInterval sets the flush interval for automatic flushing.
func (t *Transcript) SetFlushInterval(interval time.Duration) {
	t.flushInterval = interval
}

// SetBufferSize sets the buffer size used when the file is opened.
func (t *Transcript) SetBufferSize(size int) {
	t.bufferSize = size
}

// SessionID returns the session the transcript belongs to.
func (t *Transcript) SessionID() string {
	return t.sessionID
}

// Path returns the transcript file location.
func (t *Transcript) Path() string {
	return GetTranscriptPath(t.baseDir, t.sessionID)
}

// open creates the transcript file. Callers must hold t.mu.
func (t *Transcript) open() error {
	path := t.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	t.file = f
	t.writer = bufio.NewWriterSize(f, t.bufferSize)
	return nil
}

// WriteEvent appends an event to the transcript.
func (t *Transcript) WriteEvent(event *events.LogEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.file == nil {
		if err := t.open(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return err
	}

	return t.handleFlush(event)
}

// handleFlush determines and executes the appropriate flush strategy.
func (t *Transcript) handleFlush(event *events.LogEvent) error {
	bufferFull := t.writer.Buffered() > t.writer.Size()*3/4

	switch {
	case event.IsMeta():
		// Session start and end must reach disk even if the process exits right after.
		if err := t.writer.Flush(); err != nil {
			return err
		}
		if err := t.file.Sync(); err != nil {
			return err
		}
		t.cancelFlushTimer()
	case bufferFull:
		if err := t.writer.Flush(); err != nil {
			return err
		}
		t.cancelFlushTimer()
	default:
		t.scheduleFlush()
	}

	return nil
}

// scheduleFlush schedules a deferred flush. Callers must hold t.mu.
func (t *Transcript) scheduleFlush() {
	if t.flushTimer != nil {
		return // Timer already scheduled
	}

	t.flushTimer = time.AfterFunc(t.flushInterval, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.closed {
			_ = t.writer.Flush()
		}
		t.flushTimer = nil
	})
}

// cancelFlushTimer cancels any pending flush timer. Callers must hold t.mu.
func (t *Transcript) cancelFlushTimer() {
	if t.flushTimer != nil {
		t.flushTimer.Stop()
		t.flushTimer = nil
	}
}

// Close flushes, syncs and closes the transcript file.
// Closing a transcript that was never written is a no-op.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.cancelFlushTimer()

	if t.file == nil {
		return nil
	}

	var errs []error
	if err := t.writer.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := t.file.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := t.file.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
