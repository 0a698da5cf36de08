package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// Base URLs of the OpenAI-compatible providers.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OllamaBaseURL     = "http://localhost:11434/v1"
)

type OpenAIConfig struct {
	Name         string // provider label used in logs
	APIKey       string
	BaseURL      string
	Model        string
	MaxToolSteps int
	MaxRetries   int
}

// OpenAIRuntime runs a chat completion tool loop against any
// OpenAI-compatible endpoint (OpenAI, OpenRouter, Groq, Ollama).
type OpenAIRuntime struct {
	client   openai.Client
	toolbox  domainAgent.IToolbox
	model    string
	maxSteps int
	name     string
}

func NewOpenAIRuntime(cfg OpenAIConfig, toolbox domainAgent.IToolbox) *OpenAIRuntime {
	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// ollama ignores the key but the SDK insists on one
		opts = append(opts, option.WithAPIKey("none"))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.MaxToolSteps <= 0 {
		cfg.MaxToolSteps = DefaultMaxToolSteps
	}
	if cfg.Name == "" {
		cfg.Name = "OPENAI"
	}

	return &OpenAIRuntime{
		client:   openai.NewClient(opts...),
		toolbox:  toolbox,
		model:    cfg.Model,
		maxSteps: cfg.MaxToolSteps,
		name:     cfg.Name,
	}
}

func (p *OpenAIRuntime) Invoke(ctx context.Context, turns []domainChat.Turn) (*domainAgent.AgentResult, error) {
	result := &domainAgent.AgentResult{Messages: turnsToMessages(turns)}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: p.convertTurns(turns),
	}
	if tools := p.convertTools(listTools(ctx, p.toolbox, p.name)); len(tools) > 0 {
		params.Tools = tools
	}

	for step := 0; step < p.maxSteps; step++ {
		started := time.Now()
		completion, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("%s chat completion: %w", p.name, err)
		}
		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("no response from %s", p.name)
		}

		choice := completion.Choices[0]
		logrus.WithFields(logrus.Fields{
			"model":          p.model,
			"step":           step + 1,
			"input_tokens":   completion.Usage.PromptTokens,
			"output_tokens":  completion.Usage.CompletionTokens,
			"has_tool_calls": len(choice.Message.ToolCalls) > 0,
			"elapsed":        time.Since(started).Round(time.Millisecond).String(),
		}).Debugf("[%s] Chat completed", p.name)

		params.Messages = append(params.Messages, choice.Message.ToParam())
		result.Messages = append(result.Messages, domainAgent.AgentMessage{
			Role:    domainChat.RoleAssistant,
			Content: optionalText(choice.Message.Content),
		})

		if len(choice.Message.ToolCalls) == 0 {
			return result, nil
		}

		for _, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					logrus.WithError(err).Warnf("[%s] Unparseable arguments for %s", p.name, tc.Function.Name)
				}
			}
			out := callTool(ctx, p.toolbox, p.name, tc.Function.Name, args)
			params.Messages = append(params.Messages, openai.ToolMessage(out, tc.ID))
			result.Messages = append(result.Messages, domainAgent.AgentMessage{
				Role:    domainChat.RoleTool,
				Content: domainAgent.Text(out),
			})
		}
	}

	return nil, ErrToolStepsExceeded
}

func (p *OpenAIRuntime) convertTurns(turns []domainChat.Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domainChat.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case domainChat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return messages
}

func (p *OpenAIRuntime) convertTools(tools []domainAgent.Tool) []openai.ChatCompletionToolUnionParam {
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(schemaMap(t.InputSchema)),
				},
			},
		})
	}
	return out
}
