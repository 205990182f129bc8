package prompt

import (
	"slices"
	"strings"

	"github.com/randalmurphal/lmdriver/inference"
)

// Result is a formatted prompt plus which strategy produced it.
type Result struct {
	// Prompt is the final prompt string, ending at the primer when one was
	// supplied.
	Prompt string

	// TemplateApplied is true when the chat template rendered the prompt,
	// false for the fallback serialization.
	TemplateApplied bool
}

// Formatter formats conversations for one tokenizer.
type Formatter struct {
	tok inference.Tokenizer
}

// NewFormatter creates a formatter bound to the tokenizer.
func NewFormatter(tok inference.Tokenizer) *Formatter {
	return &Formatter{tok: tok}
}

// UsesTemplate reports whether Format will take the chat-template path.
func (f *Formatter) UsesTemplate() bool {
	return inference.HasChatTemplate(f.tok)
}

// Format renders the conversation. primer, when non-empty, is forced to be
// the tail of the returned prompt so generation resumes mid-assistant-turn.
// Only the template path can fail; the fallback serialization always
// succeeds.
func (f *Formatter) Format(messages []inference.Message, primer string) (Result, error) {
	if !f.UsesTemplate() {
		return Result{Prompt: Merge(messages) + primer}, nil
	}

	renderer := f.tok.(inference.ChatRenderer)

	msgs := messages
	addGenerationPrompt := true
	if primer != "" {
		// Render the primer as a closed assistant turn, then cut the
		// template's trailing closers off again below. The renderer already
		// opened the assistant turn for us, so no generation prompt.
		msgs = append(slices.Clone(messages), inference.Message{
			Role:    inference.RoleAssistant,
			Content: primer,
		})
		addGenerationPrompt = false
	}

	rendered, err := renderer.ApplyChatTemplate(msgs, addGenerationPrompt)
	if err != nil {
		return Result{}, inference.NewError("render", err)
	}

	if primer != "" {
		rendered = SplicePrimer(rendered, primer)
	}
	return Result{Prompt: rendered, TemplateApplied: true}, nil
}

// SplicePrimer truncates rendered at the LAST occurrence of primer and
// re-appends the primer, discarding whatever the template emitted after it
// (turn closers, trailing newlines). This is a string-level heuristic: if the
// primer text also occurs verbatim earlier in the render, only the final
// occurrence anchors the cut. When the primer does not occur at all the
// result degenerates to the primer alone.
//
// Kept as a named operation so it can be swapped for token-offset-based
// truncation if the runtime ever exposes render offsets.
func SplicePrimer(rendered, primer string) string {
	idx := strings.LastIndex(rendered, primer)
	if idx < 0 {
		return primer
	}
	return rendered[:idx] + primer
}

// Merge serializes the conversation into the fallback prompt format: one
// comment-marker block per turn, input order preserved, content trimmed.
// The system role uses the literal SYSTEM label; every other role appears
// verbatim.
func Merge(messages []inference.Message) string {
	parts := make([]string, 0, len(messages)*3)
	for _, msg := range messages {
		label := msg.Role
		if msg.Role == inference.RoleSystem {
			label = "SYSTEM"
		}
		parts = append(parts,
			"<!-- begin of "+label+" -->",
			strings.TrimSpace(msg.Content),
			"<!-- end of "+label+" -->",
		)
	}
	return strings.Join(parts, "\n")
}
