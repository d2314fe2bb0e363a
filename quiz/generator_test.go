package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/ai/mock"
	"github.com/poiesic/vidrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonQuiz = "```json\n" + `{"questions": [
  {"question": "What do goroutines cost?", "options": ["A) A lot", "B) Very little", "C) Nothing", "D) One thread each"], "correct": "B"},
  {"question": "Which keyword waits on channels?", "options": ["go", "select", "defer", "range"], "correct": "b)"},
  {"question": "Broken", "options": ["one", "two", "three"], "correct": "A"}
]}` + "\n```"

const textQuiz = `1. What do goroutines cost?
A) A lot
B) Very little
C) Nothing
D) One thread each
Correct answer: B)
`

func newGenerator(t *testing.T, replies ...string) (*Generator, *mock.MockGenerator) {
	t.Helper()
	gen := mock.NewMockGeneratorWithReplies(replies...)
	g, err := NewGenerator(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen))
	require.NoError(t, err)
	return g, gen
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(nil)
	assert.Equal(t, ErrAIProviderRequired, err)

	_, err = NewGenerator(mock.NewMockProvider(), WithCount(0))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewGenerator(mock.NewMockProvider(), WithExcerpt(-1))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestGenerate_Structured(t *testing.T) {
	g, gen := newGenerator(t, jsonQuiz)

	result, err := g.Generate(context.Background(), core.NewTranscript("Go Talk", "goroutines are cheap"), 3)
	require.NoError(t, err)

	require.Len(t, result.Questions, 2)
	assert.Equal(t, [4]string{"A lot", "Very little", "Nothing", "One thread each"}, result.Questions[0].Options)
	assert.Equal(t, "B", result.Questions[1].Correct)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 2, result.Rejected[0].Index)

	require.Equal(t, 1, gen.CallCount())
	prompt, _ := gen.LastPrompt()
	assert.True(t, prompt.JSON)
	assert.Contains(t, prompt.System, "Create 3 multiple-choice questions")
	assert.Equal(t, "Transcript:\ngoroutines are cheap\n\nGenerate 3 multiple-choice questions.", prompt.Query)
	require.NotNil(t, prompt.Temperature)
	assert.InDelta(t, DefaultTemperature, *prompt.Temperature, 1e-9)
}

func TestGenerate_FallsBackToText(t *testing.T) {
	g, gen := newGenerator(t, "I cannot produce JSON, sorry.", textQuiz)

	result, err := g.Generate(context.Background(), core.NewTranscript("Go Talk", "goroutines are cheap"), 0)
	require.NoError(t, err)

	require.Len(t, result.Questions, 1)
	assert.Equal(t, "B", result.Questions[0].Correct)

	prompts := gen.Prompts()
	require.Len(t, prompts, 2)
	assert.True(t, prompts[0].JSON)
	assert.False(t, prompts[1].JSON)
	assert.Contains(t, prompts[1].System, "Create 5 multiple-choice questions")
}

func TestGenerate_TextOnly(t *testing.T) {
	gen := mock.NewMockGeneratorWithReplies(textQuiz)
	g, err := NewGenerator(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen), WithStructuredOutput(false))
	require.NoError(t, err)

	result, err := g.Generate(context.Background(), core.NewTranscript("Go Talk", "goroutines are cheap"), 5)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 1)
	assert.Equal(t, 1, gen.CallCount())
}

func TestGenerate_TruncatesTranscript(t *testing.T) {
	g, gen := newGenerator(t, jsonQuiz)

	_, err := g.Generate(context.Background(), core.NewTranscript("Long", strings.Repeat("x", DefaultExcerpt+500)), 1)
	require.NoError(t, err)

	prompt, _ := gen.LastPrompt()
	assert.Contains(t, prompt.Query, strings.Repeat("x", DefaultExcerpt)+"\n\n")
	assert.NotContains(t, prompt.Query, strings.Repeat("x", DefaultExcerpt+1))
}

func TestGenerate_LimitsCount(t *testing.T) {
	g, _ := newGenerator(t, jsonQuiz)

	result, err := g.Generate(context.Background(), core.NewTranscript("Go Talk", "goroutines"), 1)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 1)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("generation failure", func(t *testing.T) {
		gen := mock.NewMockGenerator()
		gen.GenerateFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
			return "", errors.New("quota exceeded")
		}
		g, err := NewGenerator(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen))
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), core.NewTranscript("Go Talk", "text"), 5)
		assert.ErrorIs(t, err, core.ErrExternalService)
	})

	t.Run("invalid transcript", func(t *testing.T) {
		g, gen := newGenerator(t, jsonQuiz)

		_, err := g.Generate(context.Background(), core.NewTranscript("Go Talk", "  "), 5)
		assert.ErrorIs(t, err, core.ErrInvalidTranscript)
		assert.Zero(t, gen.CallCount())
	})
}

func TestDecode(t *testing.T) {
	_, err := Decode("not json")
	assert.Error(t, err)

	result, err := Decode(`{"questions": []}`)
	require.NoError(t, err)
	assert.Empty(t, result.Questions)

	result, err = Decode(`{"questions": [{"question": "Q", "options": ["a", "b", "c", "d"], "correct": "E"}]}`)
	require.NoError(t, err)
	assert.Empty(t, result.Questions)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0].Reason, "correct answer")
}
