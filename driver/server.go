package driver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/lmdriver/capability"
	"github.com/randalmurphal/lmdriver/generate"
	"github.com/randalmurphal/lmdriver/inference"
	"github.com/randalmurphal/lmdriver/prompt"
	"github.com/randalmurphal/lmdriver/tokens"
	"github.com/randalmurphal/lmdriver/transcript"
)

// Sentinel errors for request validation.
var (
	ErrMethodRequired   = errors.New("'method' field is required")
	ErrMessagesRequired = errors.New("'messages' field is required")
	ErrPromptRequired   = errors.New("'prompt' field is required")
)

// Server runs the protocol loop for one loaded model. The model and
// tokenizer handles are acquired once at startup and injected here;
// everything the server does with them is read-only.
type Server struct {
	rt    inference.Runtime
	model inference.Model
	tok   inference.Tokenizer

	probe     *capability.Probe
	formatter *prompt.Formatter
	counter   tokens.Counter
	patterns  []capability.Pattern

	in  *bufio.Reader
	out *bufio.Writer

	rec *transcript.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces the default stdin/stdout streams. Primarily for tests.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.in = bufio.NewReader(r)
		s.out = bufio.NewWriter(w)
	}
}

// WithProbePatterns replaces the built-in restriction probe catalog.
func WithProbePatterns(patterns []capability.Pattern) Option {
	return func(s *Server) { s.patterns = patterns }
}

// WithTranscript records request outcomes to the given transcript writer.
func WithTranscript(w *transcript.Writer) Option {
	return func(s *Server) { s.rec = w }
}

// WithCounter replaces the default token estimator.
func WithCounter(c tokens.Counter) Option {
	return func(s *Server) { s.counter = c }
}

// New creates a server for the loaded model.
func New(rt inference.Runtime, model inference.Model, tok inference.Tokenizer, opts ...Option) *Server {
	s := &Server{
		rt:       rt,
		model:    model,
		tok:      tok,
		counter:  tokens.NewEstimatingCounter(),
		patterns: capability.DefaultPatterns(),
		in:       bufio.NewReader(os.Stdin),
		out:      bufio.NewWriter(os.Stdout),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.probe = capability.NewProbe(tok, capability.WithPatterns(s.patterns))
	s.formatter = prompt.NewFormatter(tok)
	return s
}

// Run processes requests strictly sequentially until end of input. Every
// request path writes exactly one terminated response before the next read,
// so a failed request never corrupts the framing for the ones behind it.
func (s *Server) Run(ctx context.Context) error {
	for {
		req, err := s.readRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.dispatch(ctx, req)
	}
}

// readRequest accumulates input lines until the buffer parses as one JSON
// value. Returns io.EOF when input ends with nothing parseable left.
func (s *Server) readRequest() (*Request, error) {
	var buf bytes.Buffer
	for {
		line, readErr := s.in.ReadString('\n')
		buf.WriteString(line)

		if buf.Len() > 0 {
			var req Request
			if err := json.Unmarshal(buf.Bytes(), &req); err == nil {
				return &req, nil
			}
		}

		if readErr != nil {
			if buf.Len() > 0 && !errors.Is(readErr, io.EOF) {
				return nil, fmt.Errorf("read request: %w", readErr)
			}
			return nil, io.EOF
		}
	}
}

// dispatch routes one request and guarantees a single terminated response.
func (s *Server) dispatch(ctx context.Context, req *Request) {
	var err error
	switch req.Method {
	case "":
		err = ErrMethodRequired
	case MethodCapabilities:
		err = s.handleCapabilities()
	case MethodFormatTest:
		err = s.handleFormatTest(req)
	case MethodChat:
		err = s.handleChat(ctx, req)
	case MethodCompletion:
		err = s.handleCompletion(ctx, req)
	default:
		err = fmt.Errorf("unknown method %q", req.Method)
	}

	if err != nil {
		slog.Error("request failed",
			slog.String("method", req.Method),
			slog.Any("error", err))
		s.writeEmpty()
	}
	s.record(req.Method, err)
}

// handleCapabilities writes the cached capability report.
func (s *Server) handleCapabilities() error {
	return s.writeJSON(s.probe.Capabilities())
}

// handleFormatTest formats without generating and reports how. Formatting
// failures are part of the response, not protocol errors.
func (s *Server) handleFormatTest(req *Request) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w for format_test method", ErrMessagesRequired)
	}

	result := FormatTestResult{}
	res, err := s.formatter.Format(req.Messages, req.primer())
	if err != nil {
		msg := err.Error()
		result.Error = &msg
	} else {
		result.FormattedPrompt = &res.Prompt
		result.TemplateApplied = res.TemplateApplied
		if res.TemplateApplied {
			result.ModelSpecificProcessing = req.Messages
		}
	}

	return s.writeJSON(result)
}

// handleChat formats the conversation and streams a generation. A model
// without a usable template is not an error; the fallback serialization is
// substituted silently.
func (s *Server) handleChat(ctx context.Context, req *Request) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w for chat method", ErrMessagesRequired)
	}

	res, err := s.formatter.Format(req.Messages, req.Primer)
	if err != nil {
		return err
	}

	// The primer is already part of the prompt; echo it so the caller's
	// response text starts where the assistant turn does.
	if req.Primer != "" {
		if _, err := io.WriteString(s.out, req.Primer); err != nil {
			return err
		}
		s.out.Flush()
	}

	return s.generate(ctx, res.Prompt, req.Options)
}

// handleCompletion streams a generation for a caller-formatted prompt.
func (s *Server) handleCompletion(ctx context.Context, req *Request) error {
	if req.Prompt == "" {
		return fmt.Errorf("%w for completion method", ErrPromptRequired)
	}
	return s.generate(ctx, req.Prompt, req.Options)
}

// generate drives the runtime and streams decoded text to the output.
func (s *Server) generate(ctx context.Context, promptText string, opts inference.Options) error {
	opts = opts.WithDefaults()

	slog.Debug("prompt", slog.String("text", promptText))
	if contextLen, ok := s.tok.ModelMaxLength(); ok {
		if est, fits := estimateFit(s.counter, promptText, opts.MaxTokens, contextLen); !fits {
			slog.Warn("prompt may exceed model context",
				slog.Int("estimated_tokens", est),
				slog.Int("max_tokens", opts.MaxTokens),
				slog.Int("model_max_length", contextLen))
		}
	}

	seq, err := s.rt.Generate(ctx, s.model, s.tok, promptText, opts)
	if err != nil {
		return err
	}

	return generate.NewStreamer(s.out, s.tok).Stream(seq)
}

// writeJSON writes a JSON response followed by the terminator.
func (s *Server) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if _, err := s.out.WriteString(generate.Terminator); err != nil {
		return err
	}
	return s.out.Flush()
}

// writeEmpty writes the degraded response: a bare newline plus terminator.
// Diagnostics for the failure go to the error channel, never the protocol.
func (s *Server) writeEmpty() {
	_, _ = s.out.WriteString("\n" + generate.Terminator)
	_ = s.out.Flush()
}

// record appends the request outcome to the transcript, when one is attached.
func (s *Server) record(method string, err error) {
	if s.rec == nil {
		return
	}
	ev := transcript.Event{Method: method, Status: transcript.StatusOK}
	if err != nil {
		ev.Status = transcript.StatusError
		ev.Detail = err.Error()
	}
	if recErr := s.rec.Append(ev); recErr != nil {
		slog.Warn("transcript append failed", slog.Any("error", recErr))
	}
}

func estimateFit(c tokens.Counter, text string, maxTokens, contextLen int) (int, bool) {
	if ec, ok := c.(*tokens.EstimatingCounter); ok {
		return ec.ContextAdvisory(text, maxTokens, contextLen)
	}
	est := c.Count(text)
	return est, est+maxTokens <= contextLen
}
