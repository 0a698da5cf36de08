package botengine

import (
	"strings"
	"testing"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/stretchr/testify/assert"
)

func result(contents ...*string) *domainAgent.AgentResult {
	r := &domainAgent.AgentResult{}
	for _, c := range contents {
		r.Messages = append(r.Messages, domainAgent.AgentMessage{Role: domainChat.RoleAssistant, Content: c})
	}
	return r
}

func TestExtractReply(t *testing.T) {
	txt := domainAgent.Text

	cases := []struct {
		name   string
		in     *domainAgent.AgentResult
		want   string
		wantOK bool
	}{
		{"nil result", nil, "", false},
		{"no messages", &domainAgent.AgentResult{}, "", false},
		{"nil content", result(nil), "", false},
		{"empty content", result(txt("")), "", false},
		{"plain", result(txt("  Halo!  ")), "Halo!", true},
		{"think block", result(txt("<think>reasoning</think>\nJawaban.")), "Jawaban.", true},
		{"only first close tag splits", result(txt("a</think>b</think>c")), "b</think>c", true},
		{"only reasoning", result(txt("<think>hmm</think>   ")), "", false},
		{"last message wins", result(txt("first"), txt("second")), "second", true},
		{"earlier content ignored", result(txt("first"), nil), "", false},
		{"whitespace only", result(txt("\n\t ")), "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractReply(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTruncateReply(t *testing.T) {
	exact := strings.Repeat("a", 4000)
	assert.Equal(t, exact, TruncateReply(exact, 4000, "..."))

	long := strings.Repeat("b", 4001)
	got := TruncateReply(long, 4000, "...")
	assert.Equal(t, 4003, len(got))
	assert.True(t, strings.HasSuffix(got, "b..."))

	// counts runes, never splits a multi-byte character
	emoji := strings.Repeat("😀", 5)
	assert.Equal(t, "😀😀😀...", TruncateReply(emoji, 3, "..."))
}
