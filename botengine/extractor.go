package botengine

import (
	"strings"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
)

const thinkCloseTag = "</think>"

// ExtractReply returns the user-facing text of the last agent message.
// Reasoning emitted before a closing think tag is dropped.
func ExtractReply(result *domainAgent.AgentResult) (string, bool) {
	if result == nil || len(result.Messages) == 0 {
		return "", false
	}
	last := result.Messages[len(result.Messages)-1]
	if last.Content == nil || *last.Content == "" {
		return "", false
	}

	content := *last.Content
	if _, after, found := strings.Cut(content, thinkCloseTag); found {
		content = after
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", false
	}
	return content, true
}

// TruncateReply caps text at max runes, appending marker when it cuts.
func TruncateReply(text string, max int, marker string) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + marker
}
