package capability

import (
	"fmt"

	"github.com/randalmurphal/lmdriver/inference"
)

// probeRoles are the candidate roles tried one at a time against the
// renderer. Order is preserved in SupportedRoles.
var probeRoles = []string{
	inference.RoleSystem,
	inference.RoleUser,
	inference.RoleAssistant,
	inference.RoleTool,
	inference.RoleFunction,
}

// previewContent is the synthetic conversation used for the template preview,
// filtered down to the supported subset.
var previewContent = map[string]string{
	inference.RoleSystem:    "You are a helpful assistant.",
	inference.RoleUser:      "Hello!",
	inference.RoleAssistant: "Hi there!",
}

// detectChatTemplateInfo probes the renderer for template details. Returns
// nil when the tokenizer has no rendering capability at all.
func detectChatTemplateInfo(tok inference.Tokenizer, patterns []Pattern) *ChatTemplateInfo {
	renderer, ok := tok.(inference.ChatRenderer)
	if !ok {
		return nil
	}

	info := &ChatTemplateInfo{
		SupportedRoles: []string{},
	}
	if tmpl := renderer.ChatTemplate(); tmpl != "" {
		info.TemplateString = &tmpl
	}

	// A role is supported when rendering it alone succeeds, regardless of
	// what the render produced. One role's failure excludes only that role.
	for _, role := range probeRoles {
		probe := []inference.Message{{Role: role, Content: "test"}}
		if _, err := renderer.ApplyChatTemplate(probe, false); err == nil {
			info.SupportedRoles = append(info.SupportedRoles, role)
		}
	}

	info.Preview = renderPreview(renderer, info.SupportedRoles)
	info.Constraints = DetectRestrictions(tok, patterns)

	return info
}

// renderPreview renders a 1-3 turn sample conversation from the supported
// subset of system/user/assistant, in that order. A renderer failure yields a
// short error description, never an aborted probe. Returns nil when none of
// the preview roles are supported.
func renderPreview(renderer inference.ChatRenderer, supported []string) *string {
	supportedSet := make(map[string]bool, len(supported))
	for _, role := range supported {
		supportedSet[role] = true
	}

	var sample []inference.Message
	for _, role := range []string{inference.RoleSystem, inference.RoleUser, inference.RoleAssistant} {
		if supportedSet[role] {
			sample = append(sample, inference.Message{Role: role, Content: previewContent[role]})
		}
	}
	if len(sample) == 0 {
		return nil
	}

	preview, err := renderer.ApplyChatTemplate(sample, false)
	if err != nil {
		preview = fmt.Sprintf("Preview error: %v", err)
	}
	return &preview
}
