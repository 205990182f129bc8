package inference

import "context"

// Message is one conversation turn. Role is an open string: the driver treats
// "system" specially when serializing the fallback prompt format but otherwise
// passes roles through to the renderer unchanged.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Standard role names. These are conventions, not a closed set.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleFunction  = "function"
)

// TokenRef is a token spelling together with its resolved vocabulary id.
type TokenRef struct {
	Text string `json:"text"`
	ID   int    `json:"id"`
}

// GenerationChunk is one element of a generation stream. Which fields a chunk
// carries varies across runtime versions: FinishReason may be empty, Token may
// be nil, TokenIDs may be nil. Consumers must treat each as optional evidence.
type GenerationChunk struct {
	// Text is the decoded text for this chunk.
	Text string `json:"text"`

	// FinishReason is the runtime's stop reason, when reported.
	// The literal value "stop" signals an explicit end of generation.
	FinishReason string `json:"finish_reason,omitempty"`

	// Token is the single token id for this chunk, when reported.
	Token *int `json:"token,omitempty"`

	// TokenIDs is the full token id collection for this chunk, when the
	// runtime reports ids in bulk instead of one per chunk.
	TokenIDs []int `json:"token_ids,omitempty"`
}

// ChunkStream is a lazy, finite sequence of generation chunks.
// Next blocks on model compute and returns io.EOF when the sequence is
// exhausted. Streams are not safe for concurrent use.
type ChunkStream interface {
	Next() (GenerationChunk, error)
}

// Model is an opaque handle to loaded model weights.
type Model interface {
	Name() string
}

// Tokenizer exposes the vocabulary-level introspection surface the driver
// needs. All methods are read-only; implementations must be safe to share
// across sequential requests.
type Tokenizer interface {
	// TextToID resolves a token spelling to its id. Unregistered spellings
	// resolve to UnknownID, so callers must compare against it before treating
	// the result as a real token.
	TextToID(text string) int

	// UnknownID is the sentinel id unregistered spellings resolve to.
	UnknownID() int

	// EOS, BOS, Unknown, and Pad return the declared special tokens.
	// The second return is false when the tokenizer declares none.
	EOS() (TokenRef, bool)
	BOS() (TokenRef, bool)
	Unknown() (TokenRef, bool)
	Pad() (TokenRef, bool)

	// VocabSize is the size of the base vocabulary.
	VocabSize() int

	// ModelMaxLength is the maximum context length, when declared.
	ModelMaxLength() (int, bool)

	// AddedTokens maps explicitly registered added-token spellings to ids.
	AddedTokens() map[string]int

	// DeclaredSpecials maps declared special-token names (eg "eos_token",
	// "eoi_token") to their spellings.
	DeclaredSpecials() map[string]string
}

// ChatRenderer is the optional chat-template capability. A tokenizer that can
// render role/content conversations into a model-specific prompt string
// implements this in addition to Tokenizer; the driver discovers it with a
// type assertion. Note that implementing ChatRenderer does not mean a template
// is assigned: ChatTemplate returns "" when none is, and rendering without an
// assigned template is itself an error.
type ChatRenderer interface {
	// ApplyChatTemplate renders the conversation into a prompt string.
	// addGenerationPrompt appends the opening of a fresh assistant turn.
	ApplyChatTemplate(messages []Message, addGenerationPrompt bool) (string, error)

	// ChatTemplate returns the assigned template definition, or "" if none.
	ChatTemplate() string
}

// Runtime is the external inference engine.
type Runtime interface {
	// Load acquires the model and tokenizer handles. Called once at process
	// start; a failure here is fatal and is not retried.
	Load(ctx context.Context, model string) (Model, Tokenizer, error)

	// Generate starts producing tokens for the prompt. The returned stream is
	// finite, bounded by opts.MaxTokens and the runtime's own stopping logic.
	Generate(ctx context.Context, m Model, t Tokenizer, prompt string, opts Options) (ChunkStream, error)
}

// HasChatTemplate reports whether the tokenizer exposes a usable chat-template
// renderer: the rendering capability must exist and a template definition must
// be assigned. Both conditions are required: calling the renderer without an
// assigned template raises.
func HasChatTemplate(t Tokenizer) bool {
	r, ok := t.(ChatRenderer)
	return ok && r.ChatTemplate() != ""
}
