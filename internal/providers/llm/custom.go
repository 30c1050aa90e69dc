package llm

type CustomOpenAI struct {
	*OpenAICompatible
}

// NewCustomOpenAI points at any self-hosted OpenAI-compatible server
// (vLLM, LM Studio, llama.cpp server).
func NewCustomOpenAI(baseURL, apiKey, model string) *CustomOpenAI {
	return &CustomOpenAI{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      model,
			AuthHeader: "Authorization",
			AuthPrefix: "Bearer ",
		}),
	}
}
