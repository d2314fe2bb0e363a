// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package vidrag turns video transcripts into a namespaced semantic index and
// answers questions, writes quizzes and summaries, and extracts keywords
// grounded in that index.
//
// App wires storage, the AI provider and every component from a
// config.Config:
//
//	cfg, err := config.Load("vidrag.toml")
//	app, err := vidrag.Open(cfg)
//	defer app.Close()
//
//	session, err := app.Ingest(ctx, "Intro to Go", text, nil)
//	chat, err := app.NewConversation()
//	answer, err := chat.Answer(ctx, session, "What is a goroutine?")
package vidrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/ai/gemini"
	"github.com/poiesic/vidrag/ai/openai"
	"github.com/poiesic/vidrag/chunking"
	"github.com/poiesic/vidrag/config"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/ingestion"
	"github.com/poiesic/vidrag/keywords"
	"github.com/poiesic/vidrag/qa"
	"github.com/poiesic/vidrag/quiz"
	"github.com/poiesic/vidrag/reembed"
	"github.com/poiesic/vidrag/retrieval"
	"github.com/poiesic/vidrag/storage"
	"github.com/poiesic/vidrag/storage/badger"
	"github.com/poiesic/vidrag/storage/sqlite"
	"github.com/poiesic/vidrag/summary"
)

// ErrConfigRequired is returned by Open without a configuration.
var ErrConfigRequired = errors.New("config required")

// App is an opened vidrag instance.
type App struct {
	cfg         *config.Config
	vectors     storage.VectorStore
	transcripts storage.TranscriptRepository
	closeStore  func() error
	provider    ai.AIProvider
	pipeline    *ingestion.Pipeline
	retriever   *retrieval.Retriever
	quiz        *quiz.Generator
	summarizer  *summary.Summarizer
	keywords    *keywords.Extractor
	logger      *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	provider ai.AIProvider
	progress ingestion.Progress
	logger   *slog.Logger
}

// WithProvider uses provider instead of building one from the AI config.
// The App takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithProgress reports ingestion progress to tracker.
func WithProgress(tracker ingestion.Progress) Option {
	return func(o *options) {
		o.progress = tracker
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewProvider builds the AI provider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderGemini:
		return gemini.NewProvider(ctx, cfg)
	default:
		return openai.NewProvider(cfg)
	}
}

// OpenStores opens the storage backend named by cfg.
// The returned function closes the stores and the backend.
func OpenStores(cfg config.StorageConfig) (storage.VectorStore, storage.TranscriptRepository, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		dir := cfg.Path
		if cfg.InMemory {
			dir = sqlite.Memory
		}
		db, err := sqlite.Open(dir)
		if err != nil {
			return nil, nil, nil, err
		}
		vectors, transcripts := db.Stores()
		return vectors, transcripts, closer(vectors, transcripts, db), nil
	case config.BackendBadger:
		backend, err := badger.OpenBackend(cfg.Path, cfg.InMemory)
		if err != nil {
			return nil, nil, nil, err
		}
		vectors, transcripts := badger.NewStores(backend)
		return vectors, transcripts, closer(vectors, transcripts, backend), nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown storage backend %q", core.ErrConfiguration, cfg.Backend)
	}
}

func closer(vectors storage.VectorStore, transcripts storage.TranscriptRepository, backend io.Closer) func() error {
	return func() error {
		return errors.Join(vectors.Close(), transcripts.Close(), backend.Close())
	}
}

// Open validates cfg and wires every component.
func Open(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vectors, transcripts, closeStore, err := OpenStores(cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		provider, err = NewProvider(context.Background(), &cfg.AI)
		if err != nil {
			closeStore()
			return nil, err
		}
	}

	app := &App{
		cfg:         cfg,
		vectors:     vectors,
		transcripts: transcripts,
		closeStore:  closeStore,
		provider:    provider,
		logger:      o.logger.With("component", "vidrag"),
	}
	if err := app.wire(o); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(o *options) error {
	cfg := a.cfg
	splitter, err := chunking.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(o.logger),
		ingestion.WithSplitter(splitter),
		ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
		ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
		ingestion.WithIndex(storage.IndexSpec{
			Name:      cfg.Storage.IndexName,
			Dimension: cfg.AI.Dimension,
			Metric:    storage.MetricCosine,
		}),
	}
	if o.progress != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithProgress(o.progress))
	}
	if a.pipeline, err = ingestion.NewPipeline(a.vectors, a.transcripts, a.provider, pipelineOpts...); err != nil {
		return err
	}

	if a.retriever, err = retrieval.NewRetriever(a.vectors, a.provider,
		retrieval.WithLogger(o.logger),
		retrieval.WithTopK(cfg.QA.TopK),
		retrieval.WithMinScore(float32(cfg.QA.MinScore)),
	); err != nil {
		return err
	}

	if a.quiz, err = quiz.NewGenerator(a.provider,
		quiz.WithLogger(o.logger),
		quiz.WithCount(cfg.Quiz.Count),
		quiz.WithTemperature(cfg.Quiz.Temperature),
		quiz.WithStructuredOutput(cfg.Quiz.Structured),
	); err != nil {
		return err
	}

	if a.summarizer, err = summary.NewSummarizer(a.provider,
		summary.WithLogger(o.logger),
		summary.WithTemperature(cfg.Summary.Temperature),
	); err != nil {
		return err
	}

	a.keywords, err = keywords.NewExtractor(a.provider,
		keywords.WithLogger(o.logger),
		keywords.WithCount(cfg.Keywords.Count),
	)
	return err
}

// Config returns the configuration the App was opened with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Ingest indexes a transcript under the namespace derived from title.
// Failures that may be transient are retried per the ingestion config.
func (a *App) Ingest(ctx context.Context, title, text string, metadata *core.VideoMetadata) (*core.Session, error) {
	transcript := core.NewTranscript(title, text)
	transcript.Metadata = metadata
	return a.IngestTranscript(ctx, transcript)
}

// IngestTranscript indexes a prepared transcript.
func (a *App) IngestTranscript(ctx context.Context, transcript *core.Transcript) (*core.Session, error) {
	var session *core.Session
	err := reembed.RetryWithBackoff(ctx, func() error {
		var err error
		session, err = a.pipeline.Ingest(ctx, transcript)
		return err
	}, a.cfg.Ingestion.MaxRetries, a.cfg.Ingestion.RetryDelay.Std())
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Session returns the session for an already ingested namespace or title.
func (a *App) Session(ctx context.Context, name string) (*core.Session, error) {
	transcript, err := a.Transcript(ctx, name)
	if err != nil {
		return nil, err
	}
	n, err := a.vectors.Count(ctx, transcript.Namespace)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: namespace %q has no indexed chunks", core.ErrNotFound, transcript.Namespace)
	}
	return &core.Session{
		Namespace:  transcript.Namespace,
		Title:      transcript.Title,
		ChunkCount: n,
		IngestedAt: transcript.CreatedAt,
	}, nil
}

// Transcript looks up a stored transcript by namespace or title.
func (a *App) Transcript(ctx context.Context, name string) (*core.Transcript, error) {
	return a.transcripts.GetTranscript(ctx, core.Normalize(name))
}

// Transcripts lists every stored transcript.
func (a *App) Transcripts(ctx context.Context) ([]*core.Transcript, error) {
	return a.transcripts.ListTranscripts(ctx)
}

// Delete removes a namespace's vectors and transcript.
func (a *App) Delete(ctx context.Context, name string) error {
	ns := core.Normalize(name)
	if err := a.vectors.DeleteNamespace(ctx, ns); err != nil {
		return err
	}
	return a.transcripts.DeleteTranscript(ctx, ns)
}

// NewConversation starts a question answering conversation.
// Options are applied after the configured defaults.
func (a *App) NewConversation(opts ...qa.Option) (*qa.Engine, error) {
	base := []qa.Option{
		qa.WithLogger(a.logger),
		qa.WithWindow(a.cfg.QA.Window),
		qa.WithTemperature(a.cfg.QA.Temperature),
	}
	return qa.NewEngine(a.retriever, a.provider, append(base, opts...)...)
}

// Quiz generates n questions about a stored transcript. A non-positive n uses the configured count.
func (a *App) Quiz(ctx context.Context, name string, n int) (quiz.Result, error) {
	transcript, err := a.Transcript(ctx, name)
	if err != nil {
		return quiz.Result{}, err
	}
	return a.quiz.Generate(ctx, transcript, n)
}

// Summary summarizes a stored transcript.
func (a *App) Summary(ctx context.Context, name string) (string, error) {
	transcript, err := a.Transcript(ctx, name)
	if err != nil {
		return "", err
	}
	return a.summarizer.Summarize(ctx, transcript)
}

// Keywords extracts up to n keywords from a stored transcript.
func (a *App) Keywords(ctx context.Context, name string, n int) ([]keywords.Keyword, error) {
	transcript, err := a.Transcript(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.keywords.Extract(ctx, transcript, n)
}

// Reembed rebuilds every namespace with the current embedder.
func (a *App) Reembed(ctx context.Context, progress io.Writer) (*reembed.Report, error) {
	r, err := reembed.NewReembedder(a.transcripts, a.pipeline, &reembed.Config{
		MaxRetries: a.cfg.Ingestion.MaxRetries,
		RetryDelay: a.cfg.Ingestion.RetryDelay.Std(),
	}, progress)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// Close releases the worker pool, the AI provider and storage.
func (a *App) Close() error {
	if a.pipeline != nil {
		a.pipeline.Release()
	}
	var errs []error
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := a.closeStore(); err != nil {
		a.logger.Error("error closing storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
