package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
)

const (
	// DefaultCount is the number of questions requested when none is given.
	DefaultCount = 5

	// DefaultExcerpt is how many characters of the transcript are sent.
	DefaultExcerpt = 4000

	// DefaultTemperature is the sampling temperature for quiz generation.
	DefaultTemperature = 0.3
)

// ErrAIProviderRequired is returned when an AI provider is not provided.
var ErrAIProviderRequired = errors.New("AI provider required")

const jsonInstructions = `Respond with a JSON object of the form ` +
	`{"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "correct": "A"}]}. ` +
	`"correct" is the letter of the right option.`

// Generator writes multiple-choice quizzes about a transcript.
type Generator struct {
	generator   ai.Generator
	count       int
	excerpt     int
	temperature float64
	structured  bool
	logger      *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// WithCount sets the default number of questions. Default is DefaultCount.
func WithCount(n int) Option {
	return func(g *Generator) error {
		if n < 1 {
			return fmt.Errorf("%w: question count must be positive, got %d", core.ErrConfiguration, n)
		}
		g.count = n
		return nil
	}
}

// WithExcerpt sets how many characters of the transcript are sent. Default is DefaultExcerpt.
func WithExcerpt(n int) Option {
	return func(g *Generator) error {
		if n < 1 {
			return fmt.Errorf("%w: excerpt length must be positive, got %d", core.ErrConfiguration, n)
		}
		g.excerpt = n
		return nil
	}
}

// WithTemperature sets the sampling temperature. Default is DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) error {
		g.temperature = t
		return nil
	}
}

// WithStructuredOutput controls whether a JSON reply is requested first. Default is true.
// When disabled only the free-text format is requested.
func WithStructuredOutput(enabled bool) Option {
	return func(g *Generator) error {
		g.structured = enabled
		return nil
	}
}

// NewGenerator creates a quiz generator.
func NewGenerator(provider ai.AIProvider, opts ...Option) (*Generator, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	g := &Generator{
		generator:   provider.Generator(),
		count:       DefaultCount,
		excerpt:     DefaultExcerpt,
		temperature: DefaultTemperature,
		structured:  true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "quiz")

	return g, nil
}

// Generate asks for n questions about the transcript. A non-positive n uses the default count.
//
// A structured reply is tried first. If it yields no usable question the
// free-text format is requested and parsed. At most n questions are returned.
// Generation failures wrap core.ErrExternalService.
func (g *Generator) Generate(ctx context.Context, transcript *core.Transcript, n int) (Result, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return Result{}, err
	}
	if n < 1 {
		n = g.count
	}
	text := core.Excerpt(transcript.Text, g.excerpt)

	if g.structured {
		reply, err := g.generator.Generate(ctx, g.prompt(text, n, true))
		if err != nil {
			return Result{}, g.failed(transcript, err)
		}
		result, err := Decode(reply)
		if err == nil && len(result.Questions) > 0 {
			return limit(result, n), nil
		}
		g.logger.Warn("structured quiz unusable, falling back to text",
			"namespace", transcript.Namespace, "rejected", len(result.Rejected), "err", err)
	}

	reply, err := g.generator.Generate(ctx, g.prompt(text, n, false))
	if err != nil {
		return Result{}, g.failed(transcript, err)
	}
	result := Parse(reply)
	if len(result.Rejected) > 0 {
		g.logger.Debug("dropped malformed questions", "namespace", transcript.Namespace, "count", len(result.Rejected))
	}
	return limit(result, n), nil
}

func (g *Generator) failed(transcript *core.Transcript, err error) error {
	g.logger.Error("error generating quiz", "namespace", transcript.Namespace, "err", err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: quiz: %w", core.ErrExternalService, err)
}

func (g *Generator) prompt(text string, n int, structured bool) ai.Prompt {
	system := fmt.Sprintf("You are a quiz generator. Only use the transcript provided. "+
		"Create %d multiple-choice questions with four options (A, B, C, D). "+
		"Include the correct answer for each.", n)
	if structured {
		system += " " + jsonInstructions
	}
	return ai.Prompt{
		System:      system,
		Query:       fmt.Sprintf("Transcript:\n%s\n\nGenerate %d multiple-choice questions.", text, n),
		JSON:        structured,
		Temperature: ai.Temperature(g.temperature),
	}
}

type structuredQuiz struct {
	Questions []json.RawMessage `json:"questions"`
}

type structuredQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
}

// Decode reads a JSON quiz reply. Invalid items are reported as rejections.
// An error is returned only when the reply is not a JSON quiz object.
func Decode(reply string) (Result, error) {
	var doc structuredQuiz
	if err := json.Unmarshal([]byte(ai.CleanJSON(reply)), &doc); err != nil {
		return Result{}, fmt.Errorf("decode quiz: %w", err)
	}

	var result Result
	for i, raw := range doc.Questions {
		var item structuredQuestion
		if err := json.Unmarshal(raw, &item); err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, Raw: string(raw), Reason: err.Error()})
			continue
		}
		if len(item.Options) != len(core.OptionLetters) {
			result.Rejected = append(result.Rejected, Rejection{
				Index:  i,
				Raw:    string(raw),
				Reason: fmt.Sprintf("expected 4 options, got %d", len(item.Options)),
			})
			continue
		}

		q := core.QuizQuestion{
			Prompt:  strings.TrimSpace(item.Question),
			Correct: correctLetter(item.Correct),
		}
		for j, opt := range item.Options {
			q.Options[j] = stripLetter(strings.TrimSpace(opt), j)
		}
		if err := core.ValidateQuizQuestion(&q); err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, Raw: string(raw), Reason: err.Error()})
			continue
		}
		result.Questions = append(result.Questions, q)
	}
	return result, nil
}

// correctLetter accepts "B", "b", "B)" or "B. text".
func correctLetter(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	letter := strings.ToUpper(s[:1])
	if len(s) > 1 && s[1] != ')' && s[1] != '.' && s[1] != ' ' {
		return s
	}
	return letter
}

// stripLetter removes a leading "A) " style prefix matching the option position.
func stripLetter(opt string, pos int) string {
	m := optionPattern.FindStringSubmatch(opt)
	if m == nil || m[1] != core.OptionLetters[pos] {
		return opt
	}
	return strings.TrimSpace(m[2])
}

func limit(r Result, n int) Result {
	if len(r.Questions) > n {
		r.Questions = r.Questions[:n]
	}
	return r
}
