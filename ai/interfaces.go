package ai

import (
	"context"

	"github.com/poiesic/vidrag/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a composed prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends the prompt to the model and returns its text reply.
	// Generate performs no retries.
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Prompt is the input to a Generator.
type Prompt struct {
	// System is the fixed instruction framing the request.
	System string

	// Context is reference material the answer must be grounded in.
	// Empty when no material was retrieved.
	Context string

	// History holds earlier exchanges, oldest first.
	History []core.Turn

	// Query is the user request.
	Query string

	// JSON asks the model for a JSON object reply when the backend supports it.
	JSON bool

	// Temperature overrides the configured sampling temperature when non-nil.
	Temperature *float64
}

// UserMessage renders the context and query into the final user message.
func (p Prompt) UserMessage() string {
	if p.Context == "" {
		return p.Query
	}
	return "Context:\n" + p.Context + "\n\nQuestion:\n" + p.Query
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
