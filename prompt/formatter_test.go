package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/lmdriver/inference"
)

func TestMerge(t *testing.T) {
	got := Merge([]inference.Message{
		{Role: inference.RoleSystem, Content: " Be nice. "},
		{Role: inference.RoleUser, Content: "Hi"},
	})

	want := "<!-- begin of SYSTEM -->\n" +
		"Be nice.\n" +
		"<!-- end of SYSTEM -->\n" +
		"<!-- begin of user -->\n" +
		"Hi\n" +
		"<!-- end of user -->"
	assert.Equal(t, want, got)
}

func TestMerge_UnconventionalRoleVerbatim(t *testing.T) {
	got := Merge([]inference.Message{
		{Role: "narrator", Content: "Scene one."},
	})
	assert.Equal(t, "<!-- begin of narrator -->\nScene one.\n<!-- end of narrator -->", got)
}

func TestMerge_Empty(t *testing.T) {
	assert.Equal(t, "", Merge(nil))
}

func TestFormat_Fallback(t *testing.T) {
	f := NewFormatter(inference.NewMockTokenizer())
	assert.False(t, f.UsesTemplate())

	res, err := f.Format([]inference.Message{
		{Role: inference.RoleUser, Content: "Hi"},
	}, "")
	require.NoError(t, err)

	assert.False(t, res.TemplateApplied)
	assert.Equal(t, "<!-- begin of user -->\nHi\n<!-- end of user -->", res.Prompt)
}

func TestFormat_FallbackWithPrimer(t *testing.T) {
	f := NewFormatter(inference.NewMockTokenizer())

	res, err := f.Format([]inference.Message{
		{Role: inference.RoleUser, Content: "Hi"},
	}, "Sure,")
	require.NoError(t, err)

	assert.Equal(t, "<!-- begin of user -->\nHi\n<!-- end of user -->Sure,", res.Prompt)
}

func TestFormat_Template(t *testing.T) {
	f := NewFormatter(inference.NewMockChatTokenizer())
	assert.True(t, f.UsesTemplate())

	res, err := f.Format([]inference.Message{
		{Role: inference.RoleUser, Content: "Hi"},
	}, "")
	require.NoError(t, err)

	assert.True(t, res.TemplateApplied)
	// No primer: a fresh assistant turn is opened for generation.
	assert.Equal(t, "<|im_start|>user\nHi<|im_end|>\n<|im_start|>assistant\n", res.Prompt)
}

func TestFormat_TemplateWithPrimer(t *testing.T) {
	f := NewFormatter(inference.NewMockChatTokenizer())

	res, err := f.Format([]inference.Message{
		{Role: inference.RoleUser, Content: "Hi"},
	}, "Sure, here")
	require.NoError(t, err)

	assert.True(t, res.TemplateApplied)
	// The primer renders as a closed assistant turn, then the prompt is cut
	// back so it ends exactly at the primer.
	assert.Equal(t, "<|im_start|>user\nHi<|im_end|>\n<|im_start|>assistant\nSure, here", res.Prompt)
}

func TestFormat_PrimerDoesNotMutateInput(t *testing.T) {
	f := NewFormatter(inference.NewMockChatTokenizer())
	messages := make([]inference.Message, 1, 4)
	messages[0] = inference.Message{Role: inference.RoleUser, Content: "Hi"}

	_, err := f.Format(messages, "primer")
	require.NoError(t, err)

	assert.Len(t, messages, 1)
	assert.Equal(t, "Hi", messages[0].Content)
}

func TestFormat_RenderError(t *testing.T) {
	tok := inference.NewMockChatTokenizer()
	tok.RenderFunc = func([]inference.Message, bool) (string, error) {
		return "", errors.New("bad conversation structure")
	}
	f := NewFormatter(tok)

	_, err := f.Format([]inference.Message{{Role: inference.RoleUser, Content: "Hi"}}, "")
	require.Error(t, err)

	var infErr *inference.Error
	require.ErrorAs(t, err, &infErr)
	assert.Equal(t, "render", infErr.Op)
}

func TestSplicePrimer(t *testing.T) {
	tests := []struct {
		name     string
		rendered string
		primer   string
		want     string
	}{
		{
			name:     "cut at primer",
			rendered: "<turn>user: Hi</turn><turn>assistant: Sure,</turn>\n",
			primer:   "Sure,",
			want:     "<turn>user: Hi</turn><turn>assistant: Sure,",
		},
		{
			name:     "last occurrence anchors the cut",
			rendered: "say ok\nassistant: ok</turn>",
			primer:   "ok",
			want:     "say ok\nassistant: ok",
		},
		{
			name:     "primer absent degenerates to primer",
			rendered: "template ate the content",
			primer:   "Sure,",
			want:     "Sure,",
		},
		{
			name:     "primer at very end",
			rendered: "prefix Sure,",
			primer:   "Sure,",
			want:     "prefix Sure,",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplicePrimer(tt.rendered, tt.primer))
		})
	}
}
