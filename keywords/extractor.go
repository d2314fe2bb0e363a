// Package keywords finds the terms that best describe a transcript.
//
// Candidate words and two-word phrases are embedded and ranked by cosine
// similarity to the embedding of the transcript itself.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

const (
	// DefaultCount is the number of keywords returned when none is requested.
	DefaultCount = 5

	// DefaultCandidates bounds how many candidate terms are embedded.
	DefaultCandidates = 200

	// DefaultExcerpt is how many characters of the transcript are embedded as the document.
	DefaultExcerpt = 4000

	wikipediaBase = "https://en.wikipedia.org/wiki/"
)

// ErrAIProviderRequired is returned when an AI provider is not provided.
var ErrAIProviderRequired = errors.New("AI provider required")

// Keyword is a ranked term with a link for further reading.
type Keyword struct {
	Term  string  `json:"term"`
	Title string  `json:"title"`
	Score float32 `json:"score"`
	URL   string  `json:"url"`
}

// WikipediaURL returns the English Wikipedia article URL for a term.
func WikipediaURL(term string) string {
	return wikipediaBase + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(term), " ", "_"))
}

// Extractor ranks transcript keywords.
type Extractor struct {
	embedder   ai.Embedder
	count      int
	candidates int
	excerpt    int
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithCount sets the default number of keywords.
func WithCount(n int) Option {
	return func(e *Extractor) error {
		if n < 1 {
			return fmt.Errorf("%w: keyword count must be positive, got %d", core.ErrConfiguration, n)
		}
		e.count = n
		return nil
	}
}

// WithCandidates bounds how many candidate terms are embedded.
func WithCandidates(n int) Option {
	return func(e *Extractor) error {
		if n < 1 {
			return fmt.Errorf("%w: candidate limit must be positive, got %d", core.ErrConfiguration, n)
		}
		e.candidates = n
		return nil
	}
}

// NewExtractor creates a keyword extractor.
func NewExtractor(provider ai.AIProvider, opts ...Option) (*Extractor, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	e := &Extractor{
		embedder:   provider.Embedder(),
		count:      DefaultCount,
		candidates: DefaultCandidates,
		excerpt:    DefaultExcerpt,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "keywords")
	return e, nil
}

// Extract returns up to n keywords for the transcript, best first.
// A non-positive n uses the default count.
func (e *Extractor) Extract(ctx context.Context, transcript *core.Transcript, n int) ([]Keyword, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return nil, err
	}
	if n < 1 {
		n = e.count
	}

	text := collapseSpace(transcript.Text)
	terms := candidates(text, e.candidates)
	if len(terms) == 0 {
		return []Keyword{}, nil
	}

	doc, err := e.embedder.EmbedText(ctx, core.Excerpt(text, e.excerpt))
	if err != nil {
		return nil, e.failed(transcript, err)
	}
	vectors, err := e.embedder.EmbedTexts(ctx, terms)
	if err != nil {
		return nil, e.failed(transcript, err)
	}
	if len(vectors) != len(terms) {
		return nil, fmt.Errorf("%w: keywords: got %d embeddings for %d terms", core.ErrExternalService, len(vectors), len(terms))
	}

	top := storage.NewTopK(n)
	docNorm := storage.Norm(doc)
	for i, term := range terms {
		top.Offer(term, storage.Cosine(doc, vectors[i], docNorm), nil)
	}

	matches := top.Results()
	titler := cases.Title(language.English)
	keywords := make([]Keyword, len(matches))
	for i, m := range matches {
		keywords[i] = Keyword{
			Term:  m.ID,
			Title: titler.String(m.ID),
			Score: m.Score,
			URL:   WikipediaURL(m.ID),
		}
	}
	e.logger.Debug("extracted keywords", "namespace", transcript.Namespace, "candidates", len(terms), "count", len(keywords))
	return keywords, nil
}

func (e *Extractor) failed(transcript *core.Transcript, err error) error {
	e.logger.Error("error embedding keywords", "namespace", transcript.Namespace, "err", err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: keywords: %w", core.ErrExternalService, err)
}
