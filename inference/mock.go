package inference

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockTokenizer is a configurable test double for Tokenizer. It deliberately
// does not implement ChatRenderer; use MockChatTokenizer for a tokenizer with
// chat-rendering capability.
type MockTokenizer struct {
	// Registered maps added-token spellings to ids (AddedTokens/TextToID).
	Registered map[string]int

	// Specials maps declared special names to spellings (DeclaredSpecials).
	Specials map[string]string

	// UnkID is the sentinel id for unregistered spellings.
	UnkID int

	// Declared special tokens. Nil means "not declared".
	EOSRef *TokenRef
	BOSRef *TokenRef
	UnkRef *TokenRef
	PadRef *TokenRef

	// Vocabulary is the reported vocab size.
	Vocabulary int

	// MaxLength is the reported context length. Zero means undeclared.
	MaxLength int
}

// NewMockTokenizer creates a mock with a small Llama-style vocabulary:
// <s>/</s> declared and registered, unknown id 0.
func NewMockTokenizer() *MockTokenizer {
	return &MockTokenizer{
		Registered: map[string]int{
			"<s>":  1,
			"</s>": 2,
		},
		Specials: map[string]string{
			"eos_token": "</s>",
		},
		UnkID:      0,
		EOSRef:     &TokenRef{Text: "</s>", ID: 2},
		BOSRef:     &TokenRef{Text: "<s>", ID: 1},
		UnkRef:     &TokenRef{Text: "<unk>", ID: 0},
		Vocabulary: 32000,
		MaxLength:  4096,
	}
}

// WithToken registers an added token and returns the tokenizer for chaining.
func (m *MockTokenizer) WithToken(text string, id int) *MockTokenizer {
	if m.Registered == nil {
		m.Registered = make(map[string]int)
	}
	m.Registered[text] = id
	return m
}

// TextToID implements Tokenizer.
func (m *MockTokenizer) TextToID(text string) int {
	if id, ok := m.Registered[text]; ok {
		return id
	}
	return m.UnkID
}

// UnknownID implements Tokenizer.
func (m *MockTokenizer) UnknownID() int { return m.UnkID }

// EOS implements Tokenizer.
func (m *MockTokenizer) EOS() (TokenRef, bool) { return deref(m.EOSRef) }

// BOS implements Tokenizer.
func (m *MockTokenizer) BOS() (TokenRef, bool) { return deref(m.BOSRef) }

// Unknown implements Tokenizer.
func (m *MockTokenizer) Unknown() (TokenRef, bool) { return deref(m.UnkRef) }

// Pad implements Tokenizer.
func (m *MockTokenizer) Pad() (TokenRef, bool) { return deref(m.PadRef) }

// VocabSize implements Tokenizer.
func (m *MockTokenizer) VocabSize() int { return m.Vocabulary }

// ModelMaxLength implements Tokenizer.
func (m *MockTokenizer) ModelMaxLength() (int, bool) {
	return m.MaxLength, m.MaxLength > 0
}

// AddedTokens implements Tokenizer.
func (m *MockTokenizer) AddedTokens() map[string]int { return m.Registered }

// DeclaredSpecials implements Tokenizer.
func (m *MockTokenizer) DeclaredSpecials() map[string]string { return m.Specials }

func deref(ref *TokenRef) (TokenRef, bool) {
	if ref == nil {
		return TokenRef{}, false
	}
	return *ref, true
}

// MockChatTokenizer is a MockTokenizer that also implements ChatRenderer.
type MockChatTokenizer struct {
	MockTokenizer

	// Template is the assigned template definition. "" means the rendering
	// capability exists but no template is assigned, so rendering errors.
	Template string

	// RenderFunc overrides the default ChatML-style rendering when set.
	// Use it to script per-conversation failures for restriction probing.
	RenderFunc func(messages []Message, addGenerationPrompt bool) (string, error)
}

// NewMockChatTokenizer creates a mock chat tokenizer with a ChatML-style
// default template and <|im_end|> registered as an added token.
func NewMockChatTokenizer() *MockChatTokenizer {
	base := NewMockTokenizer()
	base.Registered["<|im_start|>"] = 5
	base.Registered["<|im_end|>"] = 6
	return &MockChatTokenizer{
		MockTokenizer: *base,
		Template:      "{% for message in messages %}...{% endfor %}",
	}
}

// ApplyChatTemplate implements ChatRenderer.
func (m *MockChatTokenizer) ApplyChatTemplate(messages []Message, addGenerationPrompt bool) (string, error) {
	if m.RenderFunc != nil {
		return m.RenderFunc(messages, addGenerationPrompt)
	}
	if m.Template == "" {
		return "", ErrNoChatTemplate
	}

	var b strings.Builder
	for _, msg := range messages {
		b.WriteString("<|im_start|>")
		b.WriteString(msg.Role)
		b.WriteString("\n")
		b.WriteString(msg.Content)
		b.WriteString("<|im_end|>\n")
	}
	if addGenerationPrompt {
		b.WriteString("<|im_start|>assistant\n")
	}
	return b.String(), nil
}

// ChatTemplate implements ChatRenderer.
func (m *MockChatTokenizer) ChatTemplate() string { return m.Template }

// GenerateCall records one Generate invocation for assertions.
type GenerateCall struct {
	Prompt  string
	Options Options
}

// MockRuntime is a test double for Runtime. It returns a scripted chunk
// sequence and records every Generate call.
type MockRuntime struct {
	mu sync.Mutex

	// Tok is returned by Load. Defaults to NewMockChatTokenizer().
	Tok Tokenizer

	// Chunks is the scripted generation sequence.
	Chunks []GenerationChunk

	// LoadErr makes Load fail.
	LoadErr error

	// StreamErr, when set, is returned by Next after StreamErrAfter chunks.
	StreamErr      error
	StreamErrAfter int

	// Calls tracks all Generate requests for assertions.
	Calls []GenerateCall
}

// NewMockRuntime creates a mock runtime that streams the given text chunks,
// none of which report an end token.
func NewMockRuntime(texts ...string) *MockRuntime {
	chunks := make([]GenerationChunk, len(texts))
	for i, t := range texts {
		chunks[i] = GenerationChunk{Text: t}
	}
	return &MockRuntime{
		Tok:    NewMockChatTokenizer(),
		Chunks: chunks,
	}
}

// WithChunks replaces the scripted sequence.
func (r *MockRuntime) WithChunks(chunks ...GenerationChunk) *MockRuntime {
	r.Chunks = chunks
	return r
}

// Load implements Runtime.
func (r *MockRuntime) Load(ctx context.Context, model string) (Model, Tokenizer, error) {
	if r.LoadErr != nil {
		return nil, nil, NewError("load", r.LoadErr)
	}
	tok := r.Tok
	if tok == nil {
		tok = NewMockChatTokenizer()
	}
	return mockModel{name: model}, tok, nil
}

// Generate implements Runtime.
func (r *MockRuntime) Generate(ctx context.Context, m Model, t Tokenizer, prompt string, opts Options) (ChunkStream, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, GenerateCall{Prompt: prompt, Options: opts})
	r.mu.Unlock()

	return &sliceStream{
		chunks:   r.Chunks,
		err:      r.StreamErr,
		errAfter: r.StreamErrAfter,
	}, nil
}

// LastCall returns the most recent Generate request, or nil if none.
func (r *MockRuntime) LastCall() *GenerateCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return nil
	}
	call := r.Calls[len(r.Calls)-1]
	return &call
}

type mockModel struct {
	name string
}

func (m mockModel) Name() string { return m.name }

// sliceStream replays a fixed chunk slice.
type sliceStream struct {
	chunks   []GenerationChunk
	idx      int
	err      error
	errAfter int
}

// Next implements ChunkStream.
func (s *sliceStream) Next() (GenerationChunk, error) {
	if s.err != nil && s.idx >= s.errAfter {
		return GenerationChunk{}, s.err
	}
	if s.idx >= len(s.chunks) {
		return GenerationChunk{}, io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

// RegisterMock adds the mock runtime to the registry under the name "mock".
// Never called from init: importing the package does not advertise the canned
// backend, callers that want it opt in. Safe to call more than once.
func RegisterMock() {
	if IsRegistered("mock") {
		return
	}
	Register("mock", func() (Runtime, error) {
		return NewMockRuntime("mock ", "response"), nil
	})
}
