// Package summary writes short prose summaries of transcripts.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
)

const (
	// SystemPrompt limits the summary to the transcript.
	SystemPrompt = "You are a helpful assistant. Summarize the transcript in 5-7 sentences " +
		"using only the information from the transcript."

	// DefaultExcerpt is how many characters of the transcript are summarized.
	DefaultExcerpt = 4000

	// DefaultTemperature is the sampling temperature for summaries.
	DefaultTemperature = 0.4
)

// ErrAIProviderRequired is returned when an AI provider is not provided.
var ErrAIProviderRequired = errors.New("AI provider required")

// Summarizer produces transcript summaries.
type Summarizer struct {
	generator   ai.Generator
	excerpt     int
	temperature float64
	logger      *slog.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithExcerpt sets how many characters of the transcript are sent.
func WithExcerpt(n int) Option {
	return func(s *Summarizer) error {
		if n < 1 {
			return fmt.Errorf("%w: excerpt length must be positive, got %d", core.ErrConfiguration, n)
		}
		s.excerpt = n
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *Summarizer) error {
		s.temperature = t
		return nil
	}
}

// NewSummarizer creates a summarizer.
func NewSummarizer(provider ai.AIProvider, opts ...Option) (*Summarizer, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	s := &Summarizer{
		generator:   provider.Generator(),
		excerpt:     DefaultExcerpt,
		temperature: DefaultTemperature,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "summary")
	return s, nil
}

// Summarize returns a summary of the opening of the transcript.
func (s *Summarizer) Summarize(ctx context.Context, transcript *core.Transcript) (string, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return "", err
	}

	reply, err := s.generator.Generate(ctx, ai.Prompt{
		System:      SystemPrompt,
		Query:       "Transcript:\n" + core.Excerpt(transcript.Text, s.excerpt) + "\n\nSummary:",
		Temperature: ai.Temperature(s.temperature),
	})
	if err != nil {
		s.logger.Error("error summarizing transcript", "namespace", transcript.Namespace, "err", err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: summary: %w", core.ErrExternalService, err)
	}

	summary := strings.TrimSpace(reply)
	if summary == "" {
		return "", fmt.Errorf("%w: summary: %w", core.ErrExternalService, ai.ErrEmptyResponse)
	}
	return summary, nil
}
