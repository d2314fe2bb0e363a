package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Retriever performs namespaced semantic search over indexed chunks.
type Retriever struct {
	vectors  storage.VectorStore
	embedder ai.Embedder
	topK     int
	minScore float32
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithTopK sets how many chunks are returned. Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return fmt.Errorf("%w: top-k must be positive, got %d", core.ErrConfiguration, k)
		}
		r.topK = k
		return nil
	}
}

// WithMinScore drops matches scoring below threshold. Default keeps all.
func WithMinScore(threshold float32) Option {
	return func(r *Retriever) error {
		r.minScore = threshold
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(vectors storage.VectorStore, provider ai.AIProvider, opts ...Option) (*Retriever, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		vectors:  vectors,
		embedder: provider.Embedder(),
		topK:     DefaultTopK,
		minScore: -1,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// TopK returns the configured result count.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns up to TopK chunks of the namespace ranked by similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, namespace core.Namespace, query string) ([]core.Match, error) {
	return r.RetrieveWithMonitor(ctx, namespace, query, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, namespace core.Namespace, query string, monitor Monitor) ([]core.Match, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(namespace, query)

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "namespace", namespace, "err", err)
		return nil, classify(err)
	}
	monitor.AfterEmbedding(embedding)

	matches, err := r.vectors.Query(ctx, namespace, embedding, r.topK)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "namespace", namespace, "err", err)
		return nil, classify(err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= r.minScore {
			kept = append(kept, m)
		}
	}
	r.logger.Debug("retrieved chunks", "namespace", namespace, "matches", len(kept))
	monitor.Finish(kept)

	return kept, nil
}

func classify(err error) error {
	if errors.Is(err, core.ErrConfiguration) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrExternalService, err)
}

// JoinContext concatenates match texts, separated by blank lines, in rank order.
func JoinContext(matches []core.Match) string {
	var size int
	for _, m := range matches {
		size += len(m.Text) + 2
	}
	buf := make([]byte, 0, size)
	for i, m := range matches {
		if i > 0 {
			buf = append(buf, '\n', '\n')
		}
		buf = append(buf, m.Text...)
	}
	return string(buf)
}
