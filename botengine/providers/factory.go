package providers

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-aiwa/core/config"
	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGroq       = "groq"
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
)

// NewAgentRuntime builds the runtime selected by cfg.Provider.
func NewAgentRuntime(ctx context.Context, cfg config.AIConfig, toolbox domainAgent.IToolbox) (domainAgent.IAgentRuntime, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiRuntime(ctx, GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			MaxToolSteps: cfg.MaxToolSteps,
		}, toolbox)
	case ProviderOpenRouter, ProviderOpenAI, ProviderGroq, ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultBaseURL(cfg.Provider)
		}
		return NewOpenAIRuntime(OpenAIConfig{
			Name:         providerLabel(cfg.Provider),
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			Model:        cfg.Model,
			MaxToolSteps: cfg.MaxToolSteps,
			MaxRetries:   2,
		}, toolbox), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}

func defaultBaseURL(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return OpenRouterBaseURL
	case ProviderGroq:
		return GroqBaseURL
	case ProviderOllama:
		return OllamaBaseURL
	default:
		return ""
	}
}

func providerLabel(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return "OPENROUTER"
	case ProviderGroq:
		return "GROQ"
	case ProviderOllama:
		return "OLLAMA"
	default:
		return "OPENAI"
	}
}
