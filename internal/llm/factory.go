package llm

import (
	"context"

	"github.com/abhisek/edusarthi/internal/logger"
	"github.com/abhisek/edusarthi/internal/store"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry and logging middleware.
// Missing credentials surface as *ConfigurationError before any network call.
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger, eventRepo store.EventRepo) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOllama:
		base, err = NewOllamaProvider(cfg.Ollama)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, err
	}

	// Wrap with middleware: caller → retry → logging → base
	logged := WithLogging(base, cfg.Provider, log, eventRepo)
	return WithRetry(logged, cfg.Retry), nil
}
