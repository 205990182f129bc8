package tokens

import (
	"unicode/utf8"
)

// DefaultCharsPerToken is the character-to-token ratio used when none is
// configured. Four characters per token tracks the BPE vocabularies the
// driver typically fronts; prompts heavy in code or CJK text estimate low.
const DefaultCharsPerToken = 4.0

// Counter estimates how many tokens a piece of prompt text will cost.
type Counter interface {
	// Count estimates the token count of text.
	Count(text string) int

	// FitsInLimit reports whether text's estimate stays within limit tokens.
	FitsInLimit(text string, limit int) bool
}

// EstimatingCounter derives estimates from rune counts. Real counts would
// need the model's tokenizer, which lives on the runtime side of the
// boundary, so the estimate is deliberately coarse and only ever feeds
// advisory warnings.
type EstimatingCounter struct {
	// CharsPerToken is the assumed characters-per-token ratio.
	CharsPerToken float64
}

// NewEstimatingCounter creates a counter with the default ratio.
func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{
		CharsPerToken: DefaultCharsPerToken,
	}
}

// NewEstimatingCounterWithRatio creates a counter with a custom ratio.
// Non-positive ratios fall back to DefaultCharsPerToken.
func NewEstimatingCounterWithRatio(charsPerToken float64) *EstimatingCounter {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &EstimatingCounter{
		CharsPerToken: charsPerToken,
	}
}

// Count estimates the token count of text. Runes, not bytes, feed the ratio
// so multi-byte text is not overcounted; the result rounds to nearest.
func (c *EstimatingCounter) Count(text string) int {
	runeCount := utf8.RuneCountInString(text)
	estimate := float64(runeCount) / c.CharsPerToken

	return int(estimate + 0.5)
}

// FitsInLimit reports whether text's estimate stays within limit tokens.
func (c *EstimatingCounter) FitsInLimit(text string, limit int) bool {
	return c.Count(text) <= limit
}

// ContextAdvisory estimates whether a formatted prompt leaves room for the
// requested generation inside the model's declared context window. The prompt
// estimate and the generation budget both have to fit in contextLen. Returns
// the prompt estimate and the fit verdict; callers log, they never block.
func (c *EstimatingCounter) ContextAdvisory(prompt string, maxTokens, contextLen int) (estimated int, fits bool) {
	estimated = c.Count(prompt)
	return estimated, estimated+maxTokens <= contextLen
}

// EstimateTokens estimates with the default ratio, for one-off callers.
func EstimateTokens(text string) int {
	return NewEstimatingCounter().Count(text)
}
