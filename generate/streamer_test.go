package generate

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/randalmurphal/lmdriver/inference"
)

// recordingWriter captures every Write call separately and counts flushes.
type recordingWriter struct {
	writes  []string
	flushes int
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func (w *recordingWriter) Flush() error {
	w.flushes++
	return nil
}

func (w *recordingWriter) output() string {
	return strings.Join(w.writes, "")
}

type scriptedStream struct {
	chunks []inference.GenerationChunk
	err    error // returned after the chunks run out, instead of io.EOF
	idx    int
}

func (s *scriptedStream) Next() (inference.GenerationChunk, error) {
	if s.idx >= len(s.chunks) {
		if s.err != nil {
			return inference.GenerationChunk{}, s.err
		}
		return inference.GenerationChunk{}, io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

func TestStream_StopsAtEndToken(t *testing.T) {
	tok := inference.NewMockTokenizer()
	w := &recordingWriter{}

	seq := &scriptedStream{chunks: []inference.GenerationChunk{
		{Text: "Hello"},
		{Text: " world"},
		{Text: "</s>", Token: intp(2)},
		{Text: "never emitted"},
	}}

	if err := NewStreamer(w, tok).Stream(seq); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	// Two text writes, then one terminator write. The end chunk's own text
	// is dropped and the stream is abandoned there.
	want := []string{"Hello", " world", "\n\x00"}
	if len(w.writes) != len(want) {
		t.Fatalf("writes = %q, want %q", w.writes, want)
	}
	for i := range want {
		if w.writes[i] != want[i] {
			t.Errorf("write %d = %q, want %q", i, w.writes[i], want[i])
		}
	}
	if w.flushes != len(want) {
		t.Errorf("flushes = %d, want %d (one per write)", w.flushes, len(want))
	}
}

func TestStream_ExhaustionWithoutEndToken(t *testing.T) {
	tok := inference.NewMockTokenizer()
	w := &recordingWriter{}

	seq := &scriptedStream{chunks: []inference.GenerationChunk{
		{Text: "a"},
		{Text: "b"},
		{Text: "c"},
	}}

	if err := NewStreamer(w, tok).Stream(seq); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got, want := w.output(), "abc\n\x00"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if n := strings.Count(w.output(), "\x00"); n != 1 {
		t.Errorf("terminator count = %d, want exactly 1", n)
	}
}

func TestStream_FinishReasonStop(t *testing.T) {
	tok := inference.NewMockTokenizer()
	w := &recordingWriter{}

	seq := &scriptedStream{chunks: []inference.GenerationChunk{
		{Text: "done"},
		{Text: "", FinishReason: "stop"},
	}}

	if err := NewStreamer(w, tok).Stream(seq); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got, want := w.output(), "done\n\x00"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStream_StripsTerminatorBytesFromText(t *testing.T) {
	tok := inference.NewMockTokenizer()
	w := &recordingWriter{}

	seq := &scriptedStream{chunks: []inference.GenerationChunk{
		{Text: "a\x00b"},
		{Text: "\x00\x00"},
	}}

	if err := NewStreamer(w, tok).Stream(seq); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got, want := w.output(), "ab\n\x00"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStream_RuntimeError(t *testing.T) {
	tok := inference.NewMockTokenizer()
	w := &recordingWriter{}
	boom := errors.New("kv cache overflow")

	seq := &scriptedStream{
		chunks: []inference.GenerationChunk{{Text: "partial"}},
		err:    boom,
	}

	err := NewStreamer(w, tok).Stream(seq)
	if !errors.Is(err, boom) {
		t.Fatalf("Stream() error = %v, want wrapped %v", err, boom)
	}

	// The error surfaces before any terminator: the caller decides how the
	// response ends.
	if strings.Contains(w.output(), "\x00") {
		t.Errorf("output %q contains a terminator after a runtime error", w.output())
	}
	if got, want := w.output(), "partial"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStream_EmptySequence(t *testing.T) {
	tok := inference.NewMockTokenizer()
	w := &recordingWriter{}

	if err := NewStreamer(w, tok).Stream(&scriptedStream{}); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got, want := w.output(), "\n\x00"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
