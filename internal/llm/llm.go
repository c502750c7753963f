// Package llm provides clients for the external summarization models.
package llm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/config"
)

// Default model names.
const (
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Client sends a prompt and returns the model's free-text answer.
type Client interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ErrNoAPIKey is returned by New when the selected provider has no key.
var ErrNoAPIKey = errors.New("summarization model API key is not configured")

// New builds the client selected by the configuration. It returns
// ErrNoAPIKey with a nil client when the provider is disabled or has no key;
// callers then fall back to generating cards without the model.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case ProviderNone:
		return nil, ErrNoAPIKey
	case ProviderOpenAI:
		if cfg.LLM.OpenAIAPIKey == "" {
			return nil, ErrNoAPIKey
		}
		c, err := NewOpenAI(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel, cfg.LLM.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGemini, "":
		if cfg.LLM.GeminiAPIKey == "" {
			return nil, ErrNoAPIKey
		}
		c, err := NewGemini(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, cfg.LLM.GeminiBaseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
