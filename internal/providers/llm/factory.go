package llm

import (
	"context"
	"fmt"

	"github.com/tosachii/ryosa/internal/config"
	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/pkg/log"
)

// NewProvider creates the configured ChatProvider.
func NewProvider(ctx context.Context, cfg *config.AppConfig) (core.ChatProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.LLMProvider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch cfg.LLMProvider {
	case "groq":
		return NewGroq(cfg.GroqAPIKey, cfg.Model), nil
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model), nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model), nil
	case "custom":
		return NewCustomOpenAI(cfg.CustomURL, cfg.CustomAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
