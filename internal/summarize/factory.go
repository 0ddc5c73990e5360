package summarize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/credentials"
)

// NewCondenser picks the condenser implementation from the provider prefix of
// cfg.Model ("gigachat:GigaChat-2-Max", "openai:gpt-4.1-mini"). An empty
// cfg.BaseURL selects the provider's public endpoint.
func NewCondenser(cfg config.SummarizationConfig, breaker circuitbreaker.Config, creds *credentials.Resolver, logger *zap.Logger) (Condenser, error) {
	provider := credentials.ProviderForModel(cfg.Model)
	_, model, _ := strings.Cut(cfg.Model, ":")

	if provider == "" {
		return nil, fmt.Errorf("summarization model %q has no provider prefix", cfg.Model)
	}
	key, err := creds.Require(provider)
	if err != nil {
		return nil, fmt.Errorf("summarization: %w", err)
	}

	switch provider {
	case credentials.ProviderGigaChat:
		return NewGigaChatCondenser(GigaChatOptions{
			BaseURL:           cfg.BaseURL,
			AuthURL:           cfg.AuthURL,
			Scope:             cfg.Scope,
			Credentials:       key,
			Model:             model,
			MaxTokens:         cfg.MaxTokens,
			StructuredRetries: cfg.MaxStructuredOutputRetries,
			Breaker:           breaker,
		}, logger)
	case credentials.ProviderOpenAI:
		return NewOpenAICondenser(OpenAIOptions{
			APIKey:            key,
			BaseURL:           cfg.BaseURL,
			Model:             model,
			MaxTokens:         cfg.MaxTokens,
			StructuredRetries: cfg.MaxStructuredOutputRetries,
			Breaker:           breaker,
		}, logger)
	}
	return nil, fmt.Errorf("summarization provider %q is not supported", provider)
}
