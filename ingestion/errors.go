package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrTranscriptRepositoryRequired is returned when a transcript repository is not provided.
	ErrTranscriptRepositoryRequired = errors.New("transcript repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmbeddingCountMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)

// Ingestion stages, in execution order.
const (
	StageValidate        = "validate"
	StageEnsureIndex     = "ensure index"
	StageChunk           = "chunk"
	StageEmbed           = "embed"
	StageClearNamespace  = "clear namespace"
	StageUpsert          = "upsert"
	StageStoreTranscript = "store transcript"
)

// StageError reports the ingestion stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
