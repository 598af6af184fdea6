package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// NewProvider builds the configured vendor adapter. Real vendors are
// wrapped as caller → retry → logging → adapter, so each attempt is logged.
func NewProvider(ctx context.Context, cfg Config, logger zerolog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.With().Str("provider", cfg.Provider).Logger()
	if cfg.Provider == "mock" {
		return WithLogging(NewMockProvider(), log), nil
	}

	base, err := newAdapter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm: %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(WithLogging(base, log), cfg.Retry), nil
}

func newAdapter(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// resolveModel maps a short alias to a vendor model id; unknown names are
// passed through so full ids work too.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
