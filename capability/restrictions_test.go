package capability

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/lmdriver/inference"
)

// restrictedTokenizer builds a chat tokenizer whose renderer rejects any
// conversation the reject predicate matches.
func restrictedTokenizer(reject func(messages []inference.Message) bool) *inference.MockChatTokenizer {
	tok := inference.NewMockChatTokenizer()
	tok.RenderFunc = func(messages []inference.Message, _ bool) (string, error) {
		if reject(messages) {
			return "", errors.New("conversation rejected by template")
		}
		return "rendered", nil
	}
	return tok
}

func countRole(messages []inference.Message, role string) int {
	n := 0
	for _, m := range messages {
		if m.Role == role {
			n++
		}
	}
	return n
}

func TestDetectRestrictions_NoneDetected(t *testing.T) {
	r := DetectRestrictions(inference.NewMockChatTokenizer(), DefaultPatterns())
	assert.Nil(t, r)
}

func TestDetectRestrictions_NoRenderer(t *testing.T) {
	r := DetectRestrictions(inference.NewMockTokenizer(), DefaultPatterns())
	assert.Nil(t, r)
}

func TestDetectRestrictions_SystemRejected(t *testing.T) {
	tok := restrictedTokenizer(func(messages []inference.Message) bool {
		return countRole(messages, inference.RoleSystem) > 0
	})

	r := DetectRestrictions(tok, DefaultPatterns())

	require.NotNil(t, r)
	require.NotNil(t, r.MaxSystemMessages)
	assert.Equal(t, 0, *r.MaxSystemMessages)
	// Rejecting system outright must not also claim "single at start".
	assert.Nil(t, r.SingleSystemAtStart)
}

func TestDetectRestrictions_SingleSystemOnly(t *testing.T) {
	tok := restrictedTokenizer(func(messages []inference.Message) bool {
		return countRole(messages, inference.RoleSystem) > 1
	})

	r := DetectRestrictions(tok, DefaultPatterns())

	require.NotNil(t, r)
	require.NotNil(t, r.SingleSystemAtStart)
	assert.True(t, *r.SingleSystemAtStart)
	require.NotNil(t, r.MaxSystemMessages)
	assert.Equal(t, 1, *r.MaxSystemMessages)
}

func TestDetectRestrictions_AlternatingTurns(t *testing.T) {
	tok := restrictedTokenizer(func(messages []inference.Message) bool {
		for i := 1; i < len(messages); i++ {
			if messages[i].Role == messages[i-1].Role {
				return true
			}
		}
		return false
	})

	r := DetectRestrictions(tok, DefaultPatterns())

	require.NotNil(t, r)
	require.NotNil(t, r.AlternatingTurns)
	assert.True(t, *r.AlternatingTurns)
}

func TestDetectRestrictions_RequiresUserLast(t *testing.T) {
	tok := restrictedTokenizer(func(messages []inference.Message) bool {
		return len(messages) > 0 && messages[len(messages)-1].Role == inference.RoleAssistant
	})

	r := DetectRestrictions(tok, DefaultPatterns())

	require.NotNil(t, r)
	require.NotNil(t, r.RequiresUserLast)
	assert.True(t, *r.RequiresUserLast)
}

func TestDetectRestrictions_EmptyMessagesRejected(t *testing.T) {
	tok := restrictedTokenizer(func(messages []inference.Message) bool {
		for _, m := range messages {
			if strings.TrimSpace(m.Content) == "" {
				return true
			}
		}
		return false
	})

	r := DetectRestrictions(tok, DefaultPatterns())

	require.NotNil(t, r)
	require.NotNil(t, r.AllowEmptyMessages)
	assert.False(t, *r.AllowEmptyMessages)
}

func TestDetectRestrictions_IndependentRules(t *testing.T) {
	// A Gemma-style template: no system role, strict alternation, user last.
	tok := restrictedTokenizer(func(messages []inference.Message) bool {
		if countRole(messages, inference.RoleSystem) > 0 {
			return true
		}
		for i := 1; i < len(messages); i++ {
			if messages[i].Role == messages[i-1].Role {
				return true
			}
		}
		return len(messages) > 0 && messages[len(messages)-1].Role == inference.RoleAssistant
	})

	r := DetectRestrictions(tok, DefaultPatterns())

	require.NotNil(t, r)
	assert.Equal(t, 0, *r.MaxSystemMessages)
	assert.True(t, *r.AlternatingTurns)
	assert.True(t, *r.RequiresUserLast)
	assert.Nil(t, r.AllowEmptyMessages)
}

func TestInferRestrictions_UnconsumedPatterns(t *testing.T) {
	// alternating and system-middle outcomes feed no rule.
	r := inferRestrictions(map[string]error{
		patternAlternating:  errors.New("rejected"),
		patternSystemMiddle: errors.New("rejected"),
	})
	assert.Nil(t, r)
}

func TestLoadPatternCatalog(t *testing.T) {
	const catalog = `
- name: custom-probe
  messages:
    - role: user
      content: Hello
    - role: assistant
      content: Hi
- name: another
  messages:
    - role: system
      content: Rules.
`
	patterns, err := LoadPatternCatalog(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "custom-probe", patterns[0].Name)
	assert.Equal(t, inference.RoleAssistant, patterns[0].Messages[1].Role)
}

func TestLoadPatternCatalog_Invalid(t *testing.T) {
	_, err := LoadPatternCatalog(strings.NewReader(`[{"messages": [{"role": "user", "content": "x"}]}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	_, err = LoadPatternCatalog(strings.NewReader(`[{"name": "empty"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messages are required")
}
