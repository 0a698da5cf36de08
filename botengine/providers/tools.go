package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/sirupsen/logrus"
)

// DefaultMaxToolSteps bounds how many model calls a single Invoke may make.
const DefaultMaxToolSteps = 6

// ErrToolStepsExceeded is returned when the model keeps asking for tools.
var ErrToolStepsExceeded = errors.New("agent exceeded the tool step limit")

// listTools never fails the invocation: without tools the model still answers.
func listTools(ctx context.Context, toolbox domainAgent.IToolbox, provider string) []domainAgent.Tool {
	if toolbox == nil {
		return nil
	}
	tools, err := toolbox.ListTools(ctx)
	if err != nil {
		logrus.WithError(err).Warnf("[%s] Tools unavailable, answering without them", provider)
		return nil
	}
	return tools
}

// callTool runs one tool call and always returns text for the model; a tool
// failure is reported to the model instead of aborting the turn.
func callTool(ctx context.Context, toolbox domainAgent.IToolbox, provider, name string, args map[string]any) string {
	if toolbox == nil {
		return fmt.Sprintf("Error: tool %s is not available", name)
	}
	out, err := toolbox.CallTool(ctx, name, args)
	if err != nil {
		logrus.WithError(err).Warnf("[%s] Tool %s failed", provider, name)
		return "Error: " + err.Error()
	}
	logrus.Debugf("[%s] Tool %s returned %d bytes", provider, name, len(out))
	return out
}

// schemaMap turns an MCP input schema into a plain JSON object.
func schemaMap(input any) map[string]any {
	out := map[string]any{}
	if input != nil {
		data, err := json.Marshal(input)
		if err == nil {
			_ = json.Unmarshal(data, &out)
		}
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if props, ok := out["properties"]; !ok || props == nil {
		out["properties"] = map[string]any{}
	}
	return out
}

func turnsToMessages(turns []domainChat.Turn) []domainAgent.AgentMessage {
	msgs := make([]domainAgent.AgentMessage, 0, len(turns)+2)
	for _, t := range turns {
		msgs = append(msgs, domainAgent.AgentMessage{Role: t.Role, Content: domainAgent.Text(t.Content)})
	}
	return msgs
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return domainAgent.Text(s)
}
