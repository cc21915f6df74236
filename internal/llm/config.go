package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration. Field tags are read by
// caarlos0/env under the ROOTCAUSE_LLM_ prefix.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter",
	// "mock" or "none" (rule-based classification only).
	Provider string `env:"PROVIDER"`

	Anthropic  AnthropicConfig  `envPrefix:"ANTHROPIC_"`
	OpenAI     OpenAIConfig     `envPrefix:"OPENAI_"`
	Gemini     GeminiConfig     `envPrefix:"GEMINI_"`
	OpenRouter OpenRouterConfig `envPrefix:"OPENROUTER_"`
	Retry      RetryConfig      `envPrefix:"RETRY_"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `env:"MAX_ATTEMPTS"`
	InitialWait time.Duration `env:"INITIAL_WAIT"`
	MaxWait     time.Duration `env:"MAX_WAIT"`
	Multiplier  float64       `env:"MULTIPLIER"`
}

// DefaultConfig returns a Config with no provider selected.
func DefaultConfig() Config {
	return Config{
		Provider:   "none",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// Discover fills in the provider and key from the vendors' standard API key
// variables (Gemini, OpenAI, Anthropic, OpenRouter, in that order) when no
// provider was chosen explicitly. Reports whether a key was found.
func (c *Config) Discover() bool {
	if c.Provider != "none" && c.Provider != "" {
		return false
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.Provider, c.Gemini.APIKey = "gemini", k
		return true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.Provider, c.OpenAI.APIKey = "openai", k
		return true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		c.Provider, c.Anthropic.APIKey = "anthropic", k
		return true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		c.Provider, c.OpenRouter.APIKey = "openrouter", k
		return true
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ROOTCAUSE_LLM_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("ROOTCAUSE_LLM_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("ROOTCAUSE_LLM_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("ROOTCAUSE_LLM_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock", "none":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
