package ai

import "errors"

// Provider names accepted by Config.Provider.
const (
	// ProviderOpenAI selects an OpenAI-compatible API (OpenAI, Ollama, vLLM, LocalAI).
	ProviderOpenAI = "openai"
	// ProviderGemini selects the Google Gemini API.
	ProviderGemini = "gemini"
)

// DefaultDimension is the embedding dimension used by the vector index.
const DefaultDimension = 384

// Temperature returns a pointer suitable for Prompt.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// ErrEmptyResponse is returned when a model reply carries no text.
var ErrEmptyResponse = errors.New("model returned an empty response")
