package vidrag

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/ai/mock"
	"github.com/poiesic/vidrag/config"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/qa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcriptText = `Goroutines are lightweight threads managed by the Go runtime.
Channels let goroutines communicate by sending typed values.
The select statement waits on several channel operations at once.
Deferred calls run when the surrounding function returns.`

const quizReply = `1. What manages goroutines?
A) The kernel
B) The Go runtime
C) The compiler
D) The linker
Correct answer: B)
`

func scriptedGenerator() *mock.MockGenerator {
	gen := mock.NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
		switch {
		case strings.HasPrefix(prompt.System, "You are a quiz generator"):
			if prompt.JSON {
				return "no json today", nil
			}
			return quizReply, nil
		case strings.HasPrefix(prompt.System, "You are a helpful assistant. Summarize"):
			return "A talk about Go concurrency.", nil
		default:
			return "Goroutines are managed by the runtime.", nil
		}
	}
	return gen
}

func openApp(t *testing.T, backend string) (*App, *mock.MockGenerator) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Backend = backend
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""

	gen := scriptedGenerator()
	app, err := Open(cfg, WithProvider(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen)))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app, gen
}

func TestApp_EndToEnd(t *testing.T) {
	for _, backend := range []string{config.BackendBadger, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			app, gen := openApp(t, backend)
			ctx := context.Background()

			session, err := app.Ingest(ctx, "Go Concurrency & You", transcriptText, &core.VideoMetadata{Uploader: "gopher"})
			require.NoError(t, err)
			assert.Equal(t, core.Namespace("go_concurrency_and_you"), session.Namespace)
			assert.Positive(t, session.ChunkCount)

			chat, err := app.NewConversation()
			require.NoError(t, err)
			answer, err := chat.Answer(ctx, session, "Who manages goroutines?")
			require.NoError(t, err)
			assert.Equal(t, "Goroutines are managed by the runtime.", answer)
			prompt, _ := gen.LastPrompt()
			assert.Equal(t, qa.SystemPrompt, prompt.System)
			assert.Contains(t, prompt.Context, "Goroutines are lightweight threads")

			result, err := app.Quiz(ctx, "GO CONCURRENCY & YOU", 0)
			require.NoError(t, err)
			require.Len(t, result.Questions, 1)
			assert.Equal(t, "B", result.Questions[0].Correct)

			summary, err := app.Summary(ctx, session.Namespace.String())
			require.NoError(t, err)
			assert.Equal(t, "A talk about Go concurrency.", summary)

			kws, err := app.Keywords(ctx, session.Namespace.String(), 3)
			require.NoError(t, err)
			assert.Len(t, kws, 3)

			resumed, err := app.Session(ctx, "Go Concurrency & You")
			require.NoError(t, err)
			assert.Equal(t, session.ChunkCount, resumed.ChunkCount)

			stored, err := app.Transcript(ctx, session.Namespace.String())
			require.NoError(t, err)
			require.NotNil(t, stored.Metadata)
			assert.Equal(t, "gopher", stored.Metadata.Uploader)

			list, err := app.Transcripts(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			var buf bytes.Buffer
			report, err := app.Reembed(ctx, &buf)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Reembedded)

			require.NoError(t, app.Delete(ctx, session.Namespace.String()))
			_, err = app.Session(ctx, session.Namespace.String())
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestApp_MinScoreFiltersContext(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.QA.MinScore = 0.999

	gen := scriptedGenerator()
	app, err := Open(cfg, WithProvider(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), gen)))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	ctx := context.Background()

	session, err := app.Ingest(ctx, "Go Concurrency", transcriptText, nil)
	require.NoError(t, err)

	chat, err := app.NewConversation()
	require.NoError(t, err)
	_, err = chat.Answer(ctx, session, "Who manages goroutines?")
	require.NoError(t, err)

	prompt, ok := gen.LastPrompt()
	require.True(t, ok)
	assert.Empty(t, prompt.Context)
	assert.Equal(t, 1, gen.CallCount())
}

func TestApp_MissingTranscript(t *testing.T) {
	app, _ := openApp(t, config.BackendBadger)
	ctx := context.Background()

	_, err := app.Quiz(ctx, "never ingested", 3)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = app.Summary(ctx, "never ingested")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = app.Keywords(ctx, "never ingested", 3)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestApp_InvalidTranscriptNotRetried(t *testing.T) {
	app, _ := openApp(t, config.BackendBadger)

	_, err := app.Ingest(context.Background(), "Empty", "   ", nil)
	assert.ErrorIs(t, err, core.ErrInvalidTranscript)
}

func TestOpen(t *testing.T) {
	_, err := Open(nil)
	assert.Equal(t, ErrConfigRequired, err)

	cfg := config.Default()
	cfg.Chunking.Overlap = cfg.Chunking.Size
	_, err = Open(cfg, WithProvider(mock.NewMockProvider()))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	t.Run("on disk", func(t *testing.T) {
		for _, backend := range []string{config.BackendBadger, config.BackendSQLite} {
			cfg := config.Default()
			cfg.Storage.Backend = backend
			cfg.Storage.Path = filepath.Join(t.TempDir(), "data")

			provider := mock.NewMockProvider()
			app, err := Open(cfg, WithProvider(provider))
			require.NoError(t, err, backend)
			_, err = os.Stat(cfg.Storage.Path)
			assert.NoError(t, err)

			require.NoError(t, app.Close())
			assert.True(t, provider.(*mock.MockProvider).Closed())
		}
	})

	t.Run("storage path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		cfg := config.Default()
		cfg.Storage.Path = file
		_, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
	})
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), &ai.Config{Provider: "acme"})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewProvider(context.Background(), &ai.Config{Provider: ai.ProviderGemini, EmbeddingModel: "m", GenerationModel: "g", Dimension: 768})
	assert.ErrorIs(t, err, core.ErrConfiguration, "gemini needs an API key")

	provider, err := NewProvider(context.Background(), ai.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, provider.Close())
}
