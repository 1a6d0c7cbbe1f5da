package config

import (
	"fmt"
	"strings"
)

type OpenAIConfig struct {
	APIKey      string  `env:"OPENAI_API_KEY"`
	BaseURL     string  `env:"OPENAI_BASE_URL"`
	Model       string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens   int     `env:"OPENAI_MAX_TOKENS" envDefault:"1500"`
	Temperature float64 `env:"OPENAI_TEMPERATURE" envDefault:"0.7"`

	// OpenRouter (optional)
	Referrer string `env:"OPENROUTER_REFERRER"`
	Title    string `env:"OPENROUTER_TITLE"`
}

// ValidateConfig проверяет корректность конфигурации
func (c *OpenAIConfig) ValidateConfig() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}

	return nil
}

// GetModelInfo описывает модель для стартового лога
func (c *OpenAIConfig) GetModelInfo() map[string]any {
	provider := "OpenAI"
	if strings.Contains(c.BaseURL, "openrouter") {
		provider = "OpenRouter"
	} else if c.BaseURL != "" {
		provider = c.BaseURL
	}
	return map[string]any{
		"model":       c.Model,
		"max_tokens":  c.MaxTokens,
		"temperature": c.Temperature,
		"provider":    provider,
	}
}
