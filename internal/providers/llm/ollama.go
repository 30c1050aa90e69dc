package llm

type Ollama struct {
	*OpenAICompatible
}

// NewOllama talks to a local Ollama through its OpenAI-compatible endpoint.
// No auth by default.
func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		OpenAICompatible: NewOpenAICompatible(OpenAICompatibleConfig{
			BaseURL: baseURL,
			Model:   model,
		}),
	}
}
