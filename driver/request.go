package driver

import (
	"github.com/randalmurphal/lmdriver/inference"
)

// Protocol method names.
const (
	MethodCapabilities = "capabilities"
	MethodFormatTest   = "format_test"
	MethodChat         = "chat"
	MethodCompletion   = "completion"
)

// Request is one protocol request. Which fields are required depends on the
// method: chat and format_test need messages, completion needs prompt.
type Request struct {
	// Method selects the operation.
	Method string `json:"method" jsonschema:"enum=capabilities,enum=format_test,enum=chat,enum=completion"`

	// Messages is the conversation for chat and format_test.
	Messages []inference.Message `json:"messages,omitempty"`

	// Prompt is the raw prompt for completion.
	Prompt string `json:"prompt,omitempty"`

	// Primer forces the start of the assistant's turn for chat and
	// format_test. Empty means no primer.
	Primer string `json:"primer,omitempty"`

	// Options tunes generation; unrecognized keys pass through to the
	// runtime.
	Options inference.Options `json:"options,omitempty"`
}

// primer returns the effective primer. format_test historically accepted the
// primer inside options, so the options escape hatch is consulted when the
// top-level field is empty.
func (r *Request) primer() string {
	if r.Primer != "" {
		return r.Primer
	}
	if p, ok := r.Options.Extra["primer"].(string); ok {
		return p
	}
	return ""
}

// FormatTestResult is the JSON response for format_test.
type FormatTestResult struct {
	// FormattedPrompt is the prompt the chat/completion path would send,
	// null when formatting failed.
	FormattedPrompt *string `json:"formatted_prompt"`

	// TemplateApplied is true when the chat template produced the prompt.
	TemplateApplied bool `json:"template_applied"`

	// ModelSpecificProcessing echoes the caller-normalized message list on
	// the template path, null otherwise.
	ModelSpecificProcessing []inference.Message `json:"model_specific_processing"`

	// Error is the formatting failure description, null on success.
	Error *string `json:"error"`
}
