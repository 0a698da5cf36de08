package agent

import (
	"context"

	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
)

// AgentMessage is one message of the agent transcript. Content is nil for
// messages that only carried tool calls.
type AgentMessage struct {
	Role    domainChat.Role `json:"role"`
	Content *string         `json:"content,omitempty"`
}

type AgentResult struct {
	Messages []AgentMessage `json:"messages"`
}

// Tool describes a callable tool exposed to the model.
type Tool struct {
	Server      string `json:"server"`
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

// IAgentRuntime runs the model (and its tools) over an ordered conversation
// whose first turn is the system instruction.
type IAgentRuntime interface {
	Invoke(ctx context.Context, turns []domainChat.Turn) (*AgentResult, error)
}

// IToolbox lists and executes tools for the agent runtime.
type IToolbox interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

func Text(s string) *string {
	return &s
}
