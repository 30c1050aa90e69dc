package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/tosachii/ryosa/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"RYOSA_RUNTIME_PATH" envDefault:".ryosa"`

	// LLM backend
	LLMProvider  string `env:"LLM_PROVIDER" envDefault:"groq"`
	Model        string `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant"`
	GroqAPIKey   string `env:"GROQ_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OllamaURL    string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	CustomURL    string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomAPIKey string `env:"CUSTOM_OPENAI_API_KEY"`

	ModelTimeoutSeconds int `env:"MODEL_TIMEOUT_SECONDS" envDefault:"20"`

	// Transport flags
	EnableTwitch  bool   `env:"ENABLE_TWITCH" envDefault:"false"`
	EnableDiscord bool   `env:"ENABLE_DISCORD" envDefault:"false"`
	EnableWeb     bool   `env:"ENABLE_WEB" envDefault:"true"`
	WebAddr       string `env:"RYOSA_WEB_ADDR" envDefault:":8642"`

	// Memory and context
	ContextWindow     int `env:"CONTEXT_WINDOW_SIZE" envDefault:"10"`
	NotesCapacity     int `env:"NOTES_CAPACITY" envDefault:"20"`
	PromptTokenBudget int `env:"PROMPT_TOKEN_BUDGET" envDefault:"1200"`

	// Decision engine
	TriggerThreshold    float64 `env:"TRIGGER_THRESHOLD" envDefault:"0.5"`
	GlobalMaxResponses  int     `env:"GLOBAL_MAX_RESPONSES" envDefault:"10"`
	GlobalWindowSeconds int     `env:"GLOBAL_WINDOW_SECONDS" envDefault:"60"`
	UserCooldownSeconds float64 `env:"USER_COOLDOWN_SECONDS" envDefault:"2"`

	PersonaPath string `env:"RYOSA_PERSONA_PATH"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse app config")
	}
	if err := c.Validate(); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("invalid app config")
	}
	return c
}

// Validate rejects impossible values at startup. Runtime code assumes the
// config is sane and never re-validates.
func (c *AppConfig) Validate() error {
	if c.ContextWindow <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW_SIZE must be positive, got %d", c.ContextWindow)
	}
	if c.NotesCapacity <= 0 {
		return fmt.Errorf("NOTES_CAPACITY must be positive, got %d", c.NotesCapacity)
	}
	if c.PromptTokenBudget <= 0 {
		return fmt.Errorf("PROMPT_TOKEN_BUDGET must be positive, got %d", c.PromptTokenBudget)
	}
	if c.GlobalMaxResponses <= 0 || c.GlobalWindowSeconds <= 0 {
		return fmt.Errorf("global rate limit must be positive, got %d per %ds",
			c.GlobalMaxResponses, c.GlobalWindowSeconds)
	}
	if c.UserCooldownSeconds < 0 {
		return fmt.Errorf("USER_COOLDOWN_SECONDS must not be negative, got %g", c.UserCooldownSeconds)
	}
	if c.TriggerThreshold < 0 || c.TriggerThreshold > 1 {
		return fmt.Errorf("TRIGGER_THRESHOLD must be within [0,1], got %g", c.TriggerThreshold)
	}
	return nil
}

func (c *AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "ryosa.db")
}

func (c *AppConfig) GetPersonaPath() string {
	if c.PersonaPath != "" {
		return c.PersonaPath
	}
	return filepath.Join(c.RuntimePath, "persona.yaml")
}
