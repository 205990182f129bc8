package driver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSchema(t *testing.T) {
	data, err := RequestSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties: %s", data)

	for _, field := range []string{"method", "messages", "prompt", "primer", "options"} {
		assert.Contains(t, props, field)
	}

	method, ok := props["method"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]any{"capabilities", "format_test", "chat", "completion"},
		method["enum"])
}

func TestFormatTestSchema(t *testing.T) {
	data, err := FormatTestSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "formatted_prompt")
	assert.Contains(t, props, "template_applied")
}
