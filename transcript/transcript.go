// Package transcript records driver request/response events as JSONL and
// reads them back, including real-time tailing of a live driver's file.
//
// Each line is one JSON event: what method was requested, how the request
// ended, and a short detail. The transcript is a diagnostic artifact: it
// never touches the wire protocol and recording failures never fail a
// request.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Event is one recorded request outcome.
type Event struct {
	// ID uniquely identifies the event. Assigned on append when empty.
	ID string `json:"id"`

	// Timestamp is when the event was recorded, RFC3339 with nanoseconds.
	Timestamp time.Time `json:"timestamp"`

	// Method is the protocol method that was dispatched, or "" when the
	// request never named one.
	Method string `json:"method,omitempty"`

	// Status is StatusOK or StatusError.
	Status string `json:"status"`

	// Detail carries a short human-readable note (eg the error text).
	Detail string `json:"detail,omitempty"`
}

// Writer appends events to a JSONL transcript file.
// Safe for use from a single goroutine per driver; the mutex guards against
// accidental sharing.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewWriter opens (creating or appending) the transcript file at path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &Writer{file: file, enc: json.NewEncoder(file)}, nil
}

// Append records one event, assigning ID and Timestamp when unset.
func (w *Writer) Append(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(ev); err != nil {
		return fmt.Errorf("append transcript event: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
