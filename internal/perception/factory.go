package perception

import (
	"fmt"
	"os"
	"time"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// NewBackend builds an AI backend from the LLM configuration.
// Provider "none" (or empty) returns nil: the judgment engine then runs
// rule-based only.
func NewBackend(cfg config.LLMConfig) (types.AIBackend, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key; set OPENAI_API_KEY")
		}
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: openAIBaseURL(cfg.BaseURL),
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want openai, ollama, or none)", cfg.Provider)
	}
}

// openAIBaseURL keeps an ollama-style default URL from leaking into the
// OpenAI client when the provider was switched by env override.
func openAIBaseURL(url string) string {
	if url == "" || url == "http://localhost:11434" {
		return "https://api.openai.com/v1"
	}
	return url
}
