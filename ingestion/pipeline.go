package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/chunking"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 32

// Pipeline orchestrates chunking, embedding and indexing of transcripts.
type Pipeline struct {
	vectors     storage.VectorStore
	transcripts storage.TranscriptRepository
	embedder    ai.Embedder
	splitter    *chunking.Splitter
	index       storage.IndexSpec
	pool        *ants.Pool
	batchSize   int
	progress    Progress
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent embedding requests.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: batch size must be positive, got %d", core.ErrConfiguration, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithSplitter replaces the default 400/100 splitter.
func WithSplitter(splitter *chunking.Splitter) Option {
	return func(p *Pipeline) error {
		if splitter == nil {
			return fmt.Errorf("%w: splitter is nil", core.ErrConfiguration)
		}
		p.splitter = splitter
		return nil
	}
}

// WithIndex sets the vector index written to.
// Default is storage.DefaultIndexName with ai.DefaultDimension and cosine.
func WithIndex(spec storage.IndexSpec) Option {
	return func(p *Pipeline) error {
		if err := spec.Validate(); err != nil {
			return err
		}
		p.index = spec
		return nil
	}
}

// WithProgress reports chunk embedding progress to tracker.
func WithProgress(tracker Progress) Option {
	return func(p *Pipeline) error {
		if tracker == nil {
			tracker = noopProgress{}
		}
		p.progress = tracker
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	vectors storage.VectorStore,
	transcripts storage.TranscriptRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if transcripts == nil {
		return nil, ErrTranscriptRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		vectors:     vectors,
		transcripts: transcripts,
		embedder:    provider.Embedder(),
		splitter:    chunking.NewDefault(),
		index: storage.IndexSpec{
			Name:      storage.DefaultIndexName,
			Dimension: ai.DefaultDimension,
			Metric:    storage.MetricCosine,
		},
		pool:      pool,
		batchSize: DefaultBatchSize,
		progress:  noopProgress{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Index returns the index spec the pipeline writes to.
func (p *Pipeline) Index() storage.IndexSpec {
	return p.index
}

// Ingest indexes the transcript under its namespace and returns the session
// naming it. Re-ingesting a title replaces the namespace's previous content.
func (p *Pipeline) Ingest(ctx context.Context, transcript *core.Transcript) (*core.Session, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	ns := transcript.Namespace
	logger := p.logger.With("namespace", ns)
	started := time.Now()

	if err := p.vectors.EnsureIndex(ctx, p.index); err != nil {
		return nil, &StageError{Stage: StageEnsureIndex, Err: external(err)}
	}

	chunks := p.splitter.Split(transcript.Text)
	if len(chunks) == 0 {
		return nil, &StageError{Stage: StageChunk, Err: core.ErrEmptyContent}
	}
	logger.Info("chunked transcript", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	p.progress.Start(len(texts))
	vectors, err := (&embeddingProcessor{
		embedder:  p.embedder,
		pool:      p.pool,
		batchSize: p.batchSize,
		progress:  p.progress,
		logger:    logger,
	}).process(ctx, texts)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: external(err)}
	}
	p.progress.Finish()

	records := make([]core.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		if err := core.ValidateDimension(vectors[i], p.index.Dimension); err != nil {
			return nil, &StageError{Stage: StageEmbed, Err: fmt.Errorf("chunk %d: %w", chunk.Index, err)}
		}
		records[i] = core.VectorRecord{ID: core.ChunkID(chunk.Index), Vector: vectors[i], Text: chunk.Text}
	}

	// A shorter transcript must not leave stale chunks from the previous one.
	if err := p.vectors.DeleteNamespace(ctx, ns); err != nil {
		return nil, &StageError{Stage: StageClearNamespace, Err: external(err)}
	}
	if err := p.vectors.Upsert(ctx, ns, records...); err != nil {
		return nil, &StageError{Stage: StageUpsert, Err: external(err)}
	}
	// Stored last so a failed run leaves the previous transcript next to the
	// previous vectors.
	if err := p.transcripts.SaveTranscript(ctx, transcript); err != nil {
		return nil, &StageError{Stage: StageStoreTranscript, Err: external(err)}
	}

	logger.Info("ingested transcript", "chunks", len(records), "elapsed", time.Since(started).Round(time.Millisecond))
	return &core.Session{
		Namespace:  ns,
		Title:      transcript.Title,
		ChunkCount: len(records),
		IngestedAt: time.Now().UTC(),
	}, nil
}

// external classifies a collaborator failure as ErrExternalService unless it
// already carries a configuration or cancellation cause.
func external(err error) error {
	switch {
	case errors.Is(err, core.ErrConfiguration),
		errors.Is(err, core.ErrInvalidTranscript),
		errors.Is(err, core.ErrExternalService),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrExternalService, err)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
