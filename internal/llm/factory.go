package llm

import (
	"fmt"

	"tradevault/internal/config"
	"tradevault/internal/logging"
)

// NewFromConfig builds a completion client from configuration. Returns
// (nil, nil) when no provider is configured: extraction then runs on
// heuristics alone, which is a supported mode, not an error.
func NewFromConfig(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "", "none":
		logging.Boot("no LLM provider configured; extraction runs heuristic-only")
		return nil, nil
	case "gemini":
		client, err := NewGeminiClient(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		logging.Boot("LLM client ready: %s", client.Name())
		return client, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		client := NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: 0, // per-call context deadlines govern; keep default transport timeout
		})
		logging.Boot("LLM client ready: %s", client.Name())
		return client, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
