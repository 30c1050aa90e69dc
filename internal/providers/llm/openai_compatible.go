package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tosachii/ryosa/internal/core"
)

// Chat-companion defaults: short, slightly loose replies.
const (
	defaultTemperature = 0.8
	defaultMaxTokens   = 220
)

type OpenAICompatible struct {
	baseProvider
	authHeader  string
	authPrefix  string
	temperature float64
	maxTokens   int
}

type OpenAICompatibleConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	AuthHeader string // e.g., "Authorization"
	AuthPrefix string // e.g., "Bearer "
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		temperature:  defaultTemperature,
		maxTokens:    defaultMaxTokens,
	}
}

// Chat sends the payload and returns the first choice. Every failure mode
// wraps core.ErrModelCall so the decision engine can classify without
// inspecting HTTP details; a context deadline surfaces as the deadline error
// and is classified upstream.
func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message) (core.Message, error) {
	payload := map[string]any{
		"model":       o.model,
		"messages":    history,
		"temperature": o.temperature,
		"max_tokens":  o.maxTokens,
	}

	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}

	resp, err := o.post(ctx, "/v1/chat/completions", payload, headers)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return core.Message{}, err
		}
		return core.Message{}, errors.Join(core.ErrModelCall, err)
	}
	defer resp.Body.Close()

	msg, err := parseChatResponse(resp)
	if err != nil {
		return core.Message{}, errors.Join(core.ErrModelCall, err)
	}
	return msg, nil
}

func parseChatResponse(resp *http.Response) (core.Message, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Message{}, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return core.Message{}, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Choices []struct {
			Message core.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices: %s", string(data))
	}
	return result.Choices[0].Message, nil
}
