package capability

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/lmdriver/inference"
)

// Restrictions records the chat-format constraints probing detected. Every
// field is sparse: nil means "no constraint detected", which is different
// from an explicit false.
type Restrictions struct {
	// SingleSystemAtStart: at most one system message, at the start.
	SingleSystemAtStart *bool `json:"single_system_at_start,omitempty"`

	// MaxSystemMessages: 0 when the system role is rejected outright,
	// 1 when only a single leading system message renders.
	MaxSystemMessages *int `json:"max_system_messages,omitempty"`

	// AlternatingTurns: consecutive same-role user turns are rejected.
	AlternatingTurns *bool `json:"alternating_turns,omitempty"`

	// RequiresUserLast: conversations ending on an assistant turn are rejected.
	RequiresUserLast *bool `json:"requires_user_last,omitempty"`

	// AllowEmptyMessages: false when an empty-content turn is rejected.
	AllowEmptyMessages *bool `json:"allow_empty_messages,omitempty"`
}

func (r *Restrictions) isEmpty() bool {
	return r.SingleSystemAtStart == nil &&
		r.MaxSystemMessages == nil &&
		r.AlternatingTurns == nil &&
		r.RequiresUserLast == nil &&
		r.AllowEmptyMessages == nil
}

// Pattern is one probe conversation. The catalog is data, not control flow:
// new patterns can be added (including from a YAML file) without touching the
// probing loop. A pattern only influences the result if a rule in
// inferRestrictions consumes its outcome.
type Pattern struct {
	Name     string              `yaml:"name" json:"name"`
	Messages []inference.Message `yaml:"messages" json:"messages"`
}

// Pattern names consumed by the inference rules.
const (
	patternBasic           = "basic"
	patternWithSystem      = "with-system"
	patternMultiSystem     = "multi-system"
	patternConsecutiveUser = "consecutive-user"
	patternAssistantLast   = "assistant-last"
	patternAlternating     = "alternating"
	patternEmptyMessage    = "empty-message"
	patternSystemMiddle    = "system-middle"
)

// DefaultPatterns returns the built-in probe catalog: eight fixed
// conversations covering system placement, turn alternation, conversation
// tail, and empty content.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name: patternBasic,
			Messages: []inference.Message{
				{Role: inference.RoleUser, Content: "Hello"},
			},
		},
		{
			Name: patternWithSystem,
			Messages: []inference.Message{
				{Role: inference.RoleSystem, Content: "You are a helpful assistant."},
				{Role: inference.RoleUser, Content: "Hello"},
			},
		},
		{
			Name: patternMultiSystem,
			Messages: []inference.Message{
				{Role: inference.RoleSystem, Content: "First system message."},
				{Role: inference.RoleSystem, Content: "Second system message."},
				{Role: inference.RoleUser, Content: "Hello"},
			},
		},
		{
			Name: patternConsecutiveUser,
			Messages: []inference.Message{
				{Role: inference.RoleUser, Content: "First question"},
				{Role: inference.RoleUser, Content: "Second question"},
			},
		},
		{
			Name: patternAssistantLast,
			Messages: []inference.Message{
				{Role: inference.RoleUser, Content: "Hello"},
				{Role: inference.RoleAssistant, Content: "Hi there!"},
			},
		},
		{
			Name: patternAlternating,
			Messages: []inference.Message{
				{Role: inference.RoleUser, Content: "Question 1"},
				{Role: inference.RoleAssistant, Content: "Answer 1"},
				{Role: inference.RoleUser, Content: "Question 2"},
			},
		},
		{
			Name: patternEmptyMessage,
			Messages: []inference.Message{
				{Role: inference.RoleUser, Content: ""},
			},
		},
		{
			Name: patternSystemMiddle,
			Messages: []inference.Message{
				{Role: inference.RoleUser, Content: "First"},
				{Role: inference.RoleSystem, Content: "System in middle"},
				{Role: inference.RoleUser, Content: "Second"},
			},
		},
	}
}

// LoadPatternCatalog decodes a replacement probe catalog from YAML.
func LoadPatternCatalog(r io.Reader) ([]Pattern, error) {
	var patterns []Pattern
	if err := yaml.NewDecoder(r).Decode(&patterns); err != nil {
		return nil, fmt.Errorf("decode pattern catalog: %w", err)
	}
	for i, p := range patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("pattern %d: name is required", i)
		}
		if len(p.Messages) == 0 {
			return nil, fmt.Errorf("pattern %q: messages are required", p.Name)
		}
	}
	return patterns, nil
}

// LoadPatternCatalogFile reads a probe catalog from a YAML file.
func LoadPatternCatalogFile(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern catalog: %w", err)
	}
	defer f.Close()
	return LoadPatternCatalog(f)
}

// DetectRestrictions renders every pattern in the catalog and infers
// constraints from the per-pattern outcomes. Each pattern's failure is
// contained to that pattern; the remaining probes always run.
//
// Returns nil both when the tokenizer has no rendering capability (detection
// is not applicable) and when probing detected nothing. Callers that need to
// distinguish the two should check for inference.ChatRenderer themselves.
func DetectRestrictions(tok inference.Tokenizer, patterns []Pattern) *Restrictions {
	renderer, ok := tok.(inference.ChatRenderer)
	if !ok {
		return nil
	}

	results := make(map[string]error, len(patterns))
	for _, p := range patterns {
		_, err := renderer.ApplyChatTemplate(p.Messages, false)
		results[p.Name] = err
		if err != nil {
			slog.Debug("restriction probe failed",
				slog.String("pattern", p.Name),
				slog.Any("error", err))
		}
	}

	return inferRestrictions(results)
}

// inferRestrictions applies the rule table to probe outcomes. Rules are
// evaluated independently; a later rule never overrides an earlier one. The
// alternating and system-middle patterns are probed and recorded but no rule
// consumes them yet; their intended constraint is still ambiguous.
func inferRestrictions(results map[string]error) *Restrictions {
	r := &Restrictions{}

	failed := func(name string) bool {
		err, probed := results[name]
		return probed && err != nil
	}

	if failed(patternWithSystem) {
		// Even a single system message is rejected.
		r.MaxSystemMessages = intPtr(0)
	} else if failed(patternMultiSystem) {
		// One system message renders but two do not.
		r.SingleSystemAtStart = boolPtr(true)
		r.MaxSystemMessages = intPtr(1)
	}

	if failed(patternConsecutiveUser) {
		r.AlternatingTurns = boolPtr(true)
	}

	if failed(patternAssistantLast) {
		r.RequiresUserLast = boolPtr(true)
	}

	if failed(patternEmptyMessage) {
		r.AllowEmptyMessages = boolPtr(false)
	}

	if r.isEmpty() {
		return nil
	}
	return r
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
