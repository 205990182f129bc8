package capability

import (
	"encoding/json"
	"sync"

	"github.com/randalmurphal/lmdriver/inference"
)

// Capabilities is the full introspection report for one model, returned by
// the capabilities protocol method.
type Capabilities struct {
	// Methods lists the protocol methods this model supports. "chat" is
	// present only when the tokenizer has a usable chat-template renderer.
	Methods []string `json:"methods"`

	// SpecialTokens maps candidate names to the tokens the vocabulary
	// actually registers.
	SpecialTokens map[string]SpecialToken `json:"special_tokens"`

	// Features reports tokenizer-level capabilities.
	Features Features `json:"features"`
}

// Features reports tokenizer-level capabilities.
type Features struct {
	// ApplyChatTemplate is true when the tokenizer exposes a chat-rendering
	// capability at all, independent of whether a template is assigned.
	ApplyChatTemplate bool `json:"apply_chat_template"`

	// VocabSize is the base vocabulary size.
	VocabSize int `json:"vocab_size"`

	// ModelMaxLength is the declared context length, null when undeclared.
	ModelMaxLength *int `json:"model_max_length"`

	// ChatTemplate holds template details, present only when the rendering
	// capability exists.
	ChatTemplate *ChatTemplateInfo `json:"chat_template,omitempty"`
}

// ChatTemplateInfo describes the chat template and what probing learned
// about it.
type ChatTemplateInfo struct {
	// TemplateString is the assigned template definition, null when the
	// rendering capability exists but no template is assigned.
	TemplateString *string `json:"template_string"`

	// SupportedRoles lists the candidate roles the template renders without
	// error, in probe order.
	SupportedRoles []string `json:"supported_roles"`

	// Preview is a sample render of a short conversation, or a short error
	// description when rendering the sample failed. Null when none of the
	// preview roles are supported.
	Preview *string `json:"preview"`

	// Constraints holds the detected structural restrictions. Omitted when
	// probing found none.
	Constraints *Restrictions `json:"constraints,omitempty"`
}

// SpecialToken is either a single registered token or a start/end pair.
type SpecialToken struct {
	Single *inference.TokenRef
	Start  *inference.TokenRef
	End    *inference.TokenRef
}

// MarshalJSON emits the paired form {start,end} when Start is set and the
// single form {text,id} otherwise.
func (t SpecialToken) MarshalJSON() ([]byte, error) {
	if t.Start != nil {
		return json.Marshal(struct {
			Start *inference.TokenRef `json:"start"`
			End   *inference.TokenRef `json:"end"`
		}{t.Start, t.End})
	}
	return json.Marshal(t.Single)
}

// UnmarshalJSON accepts both forms.
func (t *SpecialToken) UnmarshalJSON(data []byte) error {
	var pair struct {
		Start *inference.TokenRef `json:"start"`
		End   *inference.TokenRef `json:"end"`
	}
	if err := json.Unmarshal(data, &pair); err == nil && pair.Start != nil {
		t.Start, t.End, t.Single = pair.Start, pair.End, nil
		return nil
	}
	var single inference.TokenRef
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	t.Single, t.Start, t.End = &single, nil, nil
	return nil
}

// Probe computes and caches the capability report for one tokenizer. The
// tokenizer never changes over the process lifetime, so the result is computed
// once and reused for every capabilities request.
type Probe struct {
	tok      inference.Tokenizer
	patterns []Pattern

	once sync.Once
	caps Capabilities
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithPatterns replaces the built-in restriction pattern catalog.
func WithPatterns(patterns []Pattern) ProbeOption {
	return func(p *Probe) { p.patterns = patterns }
}

// NewProbe creates a probe for the given tokenizer.
func NewProbe(tok inference.Tokenizer, opts ...ProbeOption) *Probe {
	p := &Probe{
		tok:      tok,
		patterns: DefaultPatterns(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capabilities returns the cached report, computing it on first call.
func (p *Probe) Capabilities() Capabilities {
	p.once.Do(func() {
		p.caps = detect(p.tok, p.patterns)
	})
	return p.caps
}

// Detect computes a capability report without caching. Prefer a Probe in the
// request path.
func Detect(tok inference.Tokenizer) Capabilities {
	return detect(tok, DefaultPatterns())
}

func detect(tok inference.Tokenizer, patterns []Pattern) Capabilities {
	methods := []string{"capabilities", "completion", "format_test"}
	if inference.HasChatTemplate(tok) {
		methods = append(methods, "chat")
	}

	_, isRenderer := tok.(inference.ChatRenderer)

	features := Features{
		ApplyChatTemplate: isRenderer,
		VocabSize:         tok.VocabSize(),
		ChatTemplate:      detectChatTemplateInfo(tok, patterns),
	}
	if max, ok := tok.ModelMaxLength(); ok {
		features.ModelMaxLength = &max
	}

	return Capabilities{
		Methods:       methods,
		SpecialTokens: DetectSpecialTokens(tok),
		Features:      features,
	}
}
