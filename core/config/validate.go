package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var supportedProviders = []interface{}{"openrouter", "openai", "groq", "ollama", "gemini"}

// ValidateForServer checks the settings the webhook server cannot run without.
func (c *Config) ValidateForServer() error {
	if err := validation.ValidateStruct(&c.Whatsapp,
		validation.Field(&c.Whatsapp.AccessToken, validation.Required),
		validation.Field(&c.Whatsapp.PhoneNumberID, validation.Required),
		validation.Field(&c.Whatsapp.VerifyToken, validation.Required),
		validation.Field(&c.Whatsapp.APIVersion, validation.Required),
		validation.Field(&c.Whatsapp.SendRate, validation.Min(0.0)),
	); err != nil {
		return fmt.Errorf("whatsapp config: %w", err)
	}

	if err := validation.ValidateStruct(&c.AI,
		validation.Field(&c.AI.Provider, validation.Required, validation.In(supportedProviders...)),
		validation.Field(&c.AI.Model, validation.Required),
		validation.Field(&c.AI.APIKey, validation.When(c.AI.Provider != "ollama", validation.Required)),
		validation.Field(&c.AI.MaxToolSteps, validation.Min(1)),
		validation.Field(&c.AI.MCPTransport, validation.In("sse", "http")),
	); err != nil {
		return fmt.Errorf("ai config: %w", err)
	}

	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.In("sqlite", "postgres")),
		validation.Field(&c.Database.ValkeyAddress, validation.When(c.Database.ValkeyEnabled, validation.Required)),
	); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	return validation.ValidateStruct(&c.History,
		validation.Field(&c.History.MaxTurns, validation.Min(0)),
	)
}
