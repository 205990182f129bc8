package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reader reads transcript JSONL files.
type Reader struct {
	path string
	file *os.File
}

// NewReader opens a transcript file for reading.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &Reader{path: path, file: file}, nil
}

// Path returns the file path being read.
func (r *Reader) Path() string {
	return r.path
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAll reads every event in the transcript, in file order.
// Malformed lines are skipped.
func (r *Reader) ReadAll() ([]Event, error) {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start: %w", err)
	}

	var events []Event
	scanner := bufio.NewScanner(r.file)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	return events, nil
}

// Tail follows the transcript and sends new events to the returned channel.
// The channel is closed when the context is cancelled. Uses fsnotify for
// efficient file watching with polling fallback.
func (r *Reader) Tail(ctx context.Context) <-chan Event {
	ch := make(chan Event, 100)

	go func() {
		defer close(ch)

		// Only new content; existing events are ReadAll's job
		offset, err := r.file.Seek(0, io.SeekEnd)
		if err != nil {
			return
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			r.tailPolling(ctx, ch, offset)
			return
		}
		defer watcher.Close()

		// Watch the directory (more reliable than watching the file directly)
		dir := filepath.Dir(r.path)
		if err := watcher.Add(dir); err != nil {
			r.tailPolling(ctx, ch, offset)
			return
		}

		r.tailWithWatcher(ctx, ch, watcher, offset)
	}()

	return ch
}

// tailWithWatcher uses fsnotify events to discover new lines.
func (r *Reader) tailWithWatcher(ctx context.Context, ch chan<- Event, watcher *fsnotify.Watcher, offset int64) {
	baseName := filepath.Base(r.path)
	reader := bufio.NewReader(r.file)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != baseName {
				continue
			}
			if !event.Has(fsnotify.Write) {
				continue
			}

			offset = r.handleGrowth(reader, ch, offset)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Watcher errors are usually recoverable; keep tailing
		}
	}
}

// tailPolling is the fallback when fsnotify is unavailable.
func (r *Reader) tailPolling(ctx context.Context, ch chan<- Event, offset int64) {
	reader := bufio.NewReader(r.file)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			offset = r.handleGrowth(reader, ch, offset)
		}
	}
}

// handleGrowth resets on truncation, then drains any newly appended events.
func (r *Reader) handleGrowth(reader *bufio.Reader, ch chan<- Event, offset int64) int64 {
	info, err := r.file.Stat()
	if err != nil {
		return offset
	}
	if info.Size() < offset {
		// File truncated, start over
		r.file.Seek(0, io.SeekStart)
		offset = 0
		reader.Reset(r.file)
	}

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			offset += int64(len(line))
			trimmed := strings.TrimSuffix(line, "\n")
			if trimmed != "" {
				var ev Event
				if jsonErr := json.Unmarshal([]byte(trimmed), &ev); jsonErr == nil {
					select {
					case ch <- ev:
					default:
						// Channel full, skip
					}
				}
			}
		}
		if err != nil {
			return offset
		}
	}
}

// ReadFile reads all events from a transcript file path.
// Convenience function that opens, reads, and closes the file.
func ReadFile(path string) ([]Event, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
