package storage

import (
	"context"

	"github.com/poiesic/vidrag/core"
)

// Metric names a similarity function.
type Metric string

// MetricCosine is cosine similarity, the only metric the backends implement.
const MetricCosine Metric = "cosine"

// DefaultIndexName is the index the ingestion pipeline writes to.
const DefaultIndexName = "video-transcripts"

// IndexSpec describes a vector index.
type IndexSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
}

// Validate checks the spec is usable.
func (s IndexSpec) Validate() error {
	if s.Name == "" {
		return ErrIndexNameRequired
	}
	if s.Dimension <= 0 {
		return ErrInvalidDimension
	}
	if s.Metric != MetricCosine {
		return ErrUnsupportedMetric
	}
	return nil
}

// VectorStore holds embedded chunks partitioned by namespace.
// A store serves the index named by its last successful EnsureIndex call.
// Implementations must be thread-safe.
type VectorStore interface {
	// EnsureIndex creates the index if absent. Calling it again with the same
	// spec is a no-op; a different dimension or metric returns an error
	// wrapping core.ErrConfiguration.
	EnsureIndex(ctx context.Context, spec IndexSpec) error

	// Upsert writes records into the namespace, overwriting any record with the same ID.
	// A vector whose length differs from the index dimension is rejected and
	// nothing is written.
	Upsert(ctx context.Context, namespace core.Namespace, records ...core.VectorRecord) error

	// Query returns up to k records from the namespace ordered by descending
	// cosine similarity. An empty or unknown namespace yields no matches.
	Query(ctx context.Context, namespace core.Namespace, vector []float32, k int) ([]core.Match, error)

	// DeleteNamespace removes every record in the namespace.
	DeleteNamespace(ctx context.Context, namespace core.Namespace) error

	// Count returns the number of records in the namespace.
	Count(ctx context.Context, namespace core.Namespace) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// TranscriptRepository persists one transcript per namespace.
// Implementations must be thread-safe.
type TranscriptRepository interface {
	// SaveTranscript stores the transcript, replacing any previous one in its namespace.
	SaveTranscript(ctx context.Context, transcript *core.Transcript) error

	// GetTranscript returns the transcript for a namespace. The lookup is
	// case-insensitive and accepts a raw title, since the key is normalized.
	// Returns an error wrapping core.ErrNotFound when absent.
	GetTranscript(ctx context.Context, namespace core.Namespace) (*core.Transcript, error)

	// ListTranscripts returns all transcripts ordered by namespace.
	ListTranscripts(ctx context.Context) ([]*core.Transcript, error)

	// DeleteTranscript removes the transcript for a namespace.
	// Returns an error wrapping core.ErrNotFound when absent.
	DeleteTranscript(ctx context.Context, namespace core.Namespace) error

	// Close releases resources held by the repository.
	Close() error
}
