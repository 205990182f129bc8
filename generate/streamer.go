package generate

import (
	"errors"
	"io"
	"strings"

	"github.com/randalmurphal/lmdriver/inference"
)

// Terminator is the single NUL byte marking the end of one protocol response
// on the output stream.
const Terminator = "\x00"

// Flusher is implemented by buffered writers that need explicit flushing.
// When the streamer's writer implements it, output is flushed after every
// write so partial text reaches a streaming consumer immediately.
type Flusher interface {
	Flush() error
}

// Streamer writes a generation sequence to an output stream.
type Streamer struct {
	w        io.Writer
	detector *Detector
}

// NewStreamer creates a streamer writing to w, detecting end tokens for the
// given tokenizer.
func NewStreamer(w io.Writer, tok inference.Tokenizer) *Streamer {
	return &Streamer{w: w, detector: NewDetector(tok)}
}

// Stream consumes the sequence chunk by chunk. Text chunks are written
// incrementally with literal terminator bytes stripped (a NUL in generated
// text must not end the response early). The first end-of-document chunk
// stops consumption without writing its text; a sequence that runs out
// without one terminates the same way. Exactly one newline+terminator is
// written on every successful path.
//
// A runtime error from the sequence is returned before any terminator is
// written; the caller owns the degraded response in that case.
func (s *Streamer) Stream(seq inference.ChunkStream) error {
	for {
		chunk, err := seq.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return inference.NewError("generate", err)
		}

		if s.detector.IsEOD(chunk) {
			return s.Terminate()
		}

		text := strings.ReplaceAll(chunk.Text, Terminator, "")
		if _, err := io.WriteString(s.w, text); err != nil {
			return inference.NewError("write", err)
		}
		s.flush()
	}
	return s.Terminate()
}

// Terminate writes the newline+terminator that ends one streamed response.
func (s *Streamer) Terminate() error {
	if _, err := io.WriteString(s.w, "\n"+Terminator); err != nil {
		return inference.NewError("write", err)
	}
	s.flush()
	return nil
}

func (s *Streamer) flush() {
	if f, ok := s.w.(Flusher); ok {
		_ = f.Flush()
	}
}
