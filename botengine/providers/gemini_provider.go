package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxToolSteps int
}

// GeminiRuntime runs the function calling loop against the Gemini API.
type GeminiRuntime struct {
	client   *genai.Client
	toolbox  domainAgent.IToolbox
	model    string
	maxSteps int
}

func NewGeminiRuntime(ctx context.Context, cfg GeminiConfig, toolbox domainAgent.IToolbox) (*GeminiRuntime, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	if cfg.MaxToolSteps <= 0 {
		cfg.MaxToolSteps = DefaultMaxToolSteps
	}
	return &GeminiRuntime{
		client:   client,
		toolbox:  toolbox,
		model:    cfg.Model,
		maxSteps: cfg.MaxToolSteps,
	}, nil
}

// EmptyMessagePlaceholder stands in for a blank user message so the model
// still answers it.
const EmptyMessagePlaceholder = "(pesan kosong)"

func (p *GeminiRuntime) Invoke(ctx context.Context, turns []domainChat.Turn) (*domainAgent.AgentResult, error) {
	result := &domainAgent.AgentResult{Messages: turnsToMessages(turns)}

	genConfig := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	for _, t := range turns {
		switch t.Role {
		case domainChat.RoleSystem:
			genConfig.SystemInstruction = genai.NewContentFromText(t.Content, "")
		case domainChat.RoleAssistant:
			if t.Content != "" {
				contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: t.Content}}})
			}
		default:
			text := t.Content
			if strings.TrimSpace(text) == "" {
				// Gemini rejects empty text parts
				text = EmptyMessagePlaceholder
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}})
		}
	}

	// Herramientas
	var functionDecls []*genai.FunctionDeclaration
	for _, t := range listTools(ctx, p.toolbox, "GEMINI") {
		functionDecls = append(functionDecls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertMCPSchemaToAI(t.InputSchema),
		})
	}
	if len(functionDecls) > 0 {
		genConfig.Tools = []*genai.Tool{{FunctionDeclarations: functionDecls}}
	}

	for step := 0; step < p.maxSteps; step++ {
		resp, err := p.generateContentWithRetry(ctx, contents, genConfig)
		if err != nil {
			return nil, fmt.Errorf("gemini generate: %w", err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("no response from gemini")
		}

		candidate := resp.Candidates[0]
		contents = append(contents, candidate.Content)

		// Extraer texto manualmente de las partes (más robusto que result.Text())
		var text strings.Builder
		var calls []*genai.FunctionCall
		for _, part := range candidate.Content.Parts {
			if part.Thought {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				calls = append(calls, part.FunctionCall)
			}
		}

		if resp.UsageMetadata != nil {
			logrus.WithFields(logrus.Fields{
				"model":         p.model,
				"step":          step + 1,
				"input_tokens":  resp.UsageMetadata.PromptTokenCount,
				"output_tokens": resp.UsageMetadata.CandidatesTokenCount,
			}).Debug("[GEMINI] Generation completed")
		}

		result.Messages = append(result.Messages, domainAgent.AgentMessage{
			Role:    domainChat.RoleAssistant,
			Content: optionalText(text.String()),
		})
		if len(calls) == 0 {
			return result, nil
		}

		// Todas las respuestas de un mismo turno deben ir en el mismo Content
		parts := make([]*genai.Part, 0, len(calls))
		for _, fc := range calls {
			out := callTool(ctx, p.toolbox, "GEMINI", fc.Name, fc.Args)
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       fc.ID,
					Name:     fc.Name,
					Response: map[string]any{"output": out},
				},
			})
			result.Messages = append(result.Messages, domainAgent.AgentMessage{
				Role:    domainChat.RoleTool,
				Content: domainAgent.Text(out),
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	}

	return nil, ErrToolStepsExceeded
}

func convertMCPSchemaToAI(input any) *genai.Schema {
	m := schemaMap(input)
	schema := &genai.Schema{}
	fillSchema(schema, m)
	return schema
}

// fillSchema copies the JSON schema keywords Gemini understands.
func fillSchema(s *genai.Schema, m map[string]any) {
	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			s.Enum = append(s.Enum, fmt.Sprint(e))
		}
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			child := &genai.Schema{}
			if pm, ok := raw.(map[string]any); ok {
				fillSchema(child, pm)
			}
			s.Properties[name] = child
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = &genai.Schema{}
		fillSchema(s.Items, items)
	}
}

func (p *GeminiRuntime) generateContentWithRetry(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	for i := 0; i < 3; i++ {
		result, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
		if err == nil {
			return result, nil
		}
		if !strings.Contains(err.Error(), "503") {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<uint(i)) * time.Second):
		}
	}
	return nil, fmt.Errorf("max retries exceeded")
}
