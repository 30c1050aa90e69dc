package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosachii/ryosa/internal/core"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAICompatible {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
	})
}

func TestChat_SendsPayloadAndParsesReply(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hey!"}}]}`))
	})

	msg, err := p.Chat(context.Background(), []core.Message{
		{Role: core.RoleSystem, Content: "be brief"},
		{Role: core.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hey!", msg.Content)
	assert.Equal(t, core.RoleAssistant, msg.Role)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotPayload["model"])
	assert.Len(t, gotPayload["messages"], 2)
	assert.NotNil(t, gotPayload["temperature"])
	assert.NotNil(t, gotPayload["max_tokens"])
}

func TestChat_HTTPErrorClassifiedAsModelCall(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := p.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrModelCall))
}

func TestChat_EmptyChoicesIsAnError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := p.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}})
	assert.True(t, errors.Is(err, core.ErrModelCall))
}

func TestChat_DeadlinePassesThroughUnwrapped(t *testing.T) {
	p := newTestProvider(t, func(http.ResponseWriter, *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Chat(ctx, []core.Message{{Role: core.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrModelCall), "cancellation is not a model fault")
}
