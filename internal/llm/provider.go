package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mailvoice/internal/domain"
)

// Provider is the generation service: one prompt in, one text out.
type Provider interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

type Config struct {
	Provider         string
	Model            string
	OllamaBaseURL    string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	GeminiAPIKey     string
}

// NewProvider returns a nil Provider for "none", which callers treat as
// generation being permanently unavailable.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	client := &http.Client{Timeout: 60 * time.Second}

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "ollama":
		return NewOllamaProvider(client, cfg.OllamaBaseURL, cfg.Model), nil
	case "openai":
		return NewOpenAIProvider(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model), nil
	case "claude":
		return NewClaudeProvider(client, cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.Model), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
