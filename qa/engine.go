package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/retrieval"
)

// RefusalPhrase is the answer given when the transcript does not cover the question.
const RefusalPhrase = "Sorry, I don't know. That's not part of the video content."

// SystemPrompt restricts answers to the retrieved transcript context.
const SystemPrompt = "You are a helpful assistant. Only answer questions using the video transcript provided. " +
	"If the answer is not clearly found in the context, say: '" + RefusalPhrase + "'"

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrNoSession is returned when Answer is called without an ingested session.
	ErrNoSession = fmt.Errorf("%w: no active session", core.ErrNotFound)

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = fmt.Errorf("question: %w", core.ErrEmptyContent)
)

// Engine answers questions for one conversation.
// It is not safe for concurrent use; callers serialize per conversation.
type Engine struct {
	retriever   *retrieval.Retriever
	generator   ai.Generator
	history     *History
	namespace   core.Namespace
	temperature float64
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithWindow sets how many exchanges are remembered. Default is DefaultWindow.
func WithWindow(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return fmt.Errorf("%w: history window must not be negative, got %d", core.ErrConfiguration, n)
		}
		e.history = NewHistory(n)
		return nil
	}
}

// WithTemperature sets the sampling temperature for answers. Default is 0.
func WithTemperature(t float64) Option {
	return func(e *Engine) error {
		e.temperature = t
		return nil
	}
}

// NewEngine creates an engine with an empty history.
func NewEngine(retriever *retrieval.Retriever, provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		retriever: retriever,
		generator: provider.Generator(),
		history:   NewHistory(DefaultWindow),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "qa")

	return e, nil
}

// Answer responds to query using only the session's transcript.
//
// When nothing is retrieved the generator still runs with an empty context
// and the system prompt's refusal instruction. A generation failure is returned wrapped in
// core.ErrExternalService and the history is left as it was.
// Switching to a session with a different namespace clears the history.
func (e *Engine) Answer(ctx context.Context, session *core.Session, query string) (string, error) {
	if session == nil || session.Namespace == "" {
		return "", ErrNoSession
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuestion
	}
	if session.Namespace != e.namespace {
		e.history.Reset()
		e.namespace = session.Namespace
	}

	matches, err := e.retriever.Retrieve(ctx, session.Namespace, query)
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		e.logger.Debug("no context retrieved", "namespace", session.Namespace)
	}
	reply, err := e.generator.Generate(ctx, e.prompt(matches, query))
	if err != nil {
		e.logger.Error("error generating answer", "namespace", session.Namespace, "err", err)
		return "", fmt.Errorf("%w: %w", core.ErrExternalService, err)
	}
	answer := strings.TrimSpace(reply)

	e.history.Append(core.Turn{Question: query, Answer: answer})
	return answer, nil
}

func (e *Engine) prompt(matches []core.Match, query string) ai.Prompt {
	return ai.Prompt{
		System:      SystemPrompt,
		Context:     retrieval.JoinContext(matches),
		History:     e.history.Turns(),
		Query:       query,
		Temperature: ai.Temperature(e.temperature),
	}
}

// History returns the remembered turns, oldest first.
func (e *Engine) History() []core.Turn {
	return e.history.Turns()
}

// Reset forgets the conversation.
func (e *Engine) Reset() {
	e.history.Reset()
}
