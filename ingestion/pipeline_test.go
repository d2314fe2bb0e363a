package ingestion

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/ai/mock"
	"github.com/poiesic/vidrag/chunking"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
	"github.com/poiesic/vidrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	vectors     storage.VectorStore
	transcripts storage.TranscriptRepository
	embedder    *mock.MockEmbedder
	provider    ai.AIProvider
}

func newFixture(t *testing.T, embedder *mock.MockEmbedder) *fixture {
	t.Helper()
	vectors, transcripts, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	if embedder == nil {
		embedder = mock.NewMockEmbedder()
	}
	return &fixture{
		vectors:     vectors,
		transcripts: transcripts,
		embedder:    embedder,
		provider:    mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator()),
	}
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(f.vectors, f.transcripts, f.provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

// recordingProgress implements Progress for testing
type recordingProgress struct {
	mu       sync.Mutex
	total    int
	done     int
	finished bool
}

func (r *recordingProgress) Start(total int) { r.mu.Lock(); r.total = total; r.mu.Unlock() }
func (r *recordingProgress) Increment(d int) { r.mu.Lock(); r.done += d; r.mu.Unlock() }
func (r *recordingProgress) Finish()         { r.mu.Lock(); r.finished = true; r.mu.Unlock() }

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	f := newFixture(t, nil)

	_, err := NewPipeline(nil, f.transcripts, f.provider)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)
	_, err = NewPipeline(f.vectors, nil, f.provider)
	assert.ErrorIs(t, err, ErrTranscriptRepositoryRequired)
	_, err = NewPipeline(f.vectors, f.transcripts, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewPipeline(f.vectors, f.transcripts, f.provider, WithBatchSize(0))
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewPipeline(f.vectors, f.transcripts, f.provider, WithIndex(storage.IndexSpec{Name: "x", Dimension: 0, Metric: storage.MetricCosine}))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	p := f.pipeline(t)

	text := strings.Repeat("abcdefghij", 100) // 1000 runes
	session, err := p.Ingest(ctx, core.NewTranscript("Intro to Go", text))
	require.NoError(t, err)

	assert.Equal(t, core.Namespace("intro_to_go"), session.Namespace)
	assert.Equal(t, "Intro to Go", session.Title)
	assert.Equal(t, 3, session.ChunkCount) // ceil((1000-100)/300)
	assert.False(t, session.IngestedAt.IsZero())

	count, err := f.vectors.Count(ctx, session.Namespace)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stored, err := f.transcripts.GetTranscript(ctx, "INTRO_TO_GO")
	require.NoError(t, err)
	assert.Equal(t, text, stored.Text)

	// chunk-0 is retrievable by its own embedding.
	chunk0 := text[:400]
	matches, err := f.vectors.Query(ctx, session.Namespace, mock.Vector(chunk0, ai.DefaultDimension), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk-0", matches[0].ID)
	assert.Equal(t, chunk0, matches[0].Text)
}

func TestIngest_ReingestLeavesNoOrphans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	p := f.pipeline(t)

	_, err := p.Ingest(ctx, core.NewTranscript("Talk", strings.Repeat("x", 1000)))
	require.NoError(t, err)
	session, err := p.Ingest(ctx, core.NewTranscript("talk", strings.Repeat("y", 300)))
	require.NoError(t, err)

	assert.Equal(t, 1, session.ChunkCount)
	count, err := f.vectors.Count(ctx, "talk")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	f := newFixture(t, embedder)
	p := f.pipeline(t)

	_, err := p.Ingest(ctx, core.NewTranscript("Keep", "original content"))
	require.NoError(t, err)

	boom := errors.New("connection refused")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	_, err = p.Ingest(ctx, core.NewTranscript("Keep", "replacement content"))
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEmbed, stageErr.Stage)
	assert.ErrorIs(t, err, core.ErrExternalService)
	assert.ErrorIs(t, err, boom)

	// The namespace still holds the previous vectors and transcript.
	count, err := f.vectors.Count(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	stored, err := f.transcripts.GetTranscript(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "original content", stored.Text)
}

func TestIngest_UpsertFailureKeepsPreviousTranscript(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	p := f.pipeline(t)

	_, err := p.Ingest(ctx, core.NewTranscript("Keep", "original content"))
	require.NoError(t, err)

	boom := errors.New("disk full")
	f.vectors = &failingUpsert{VectorStore: f.vectors, err: boom}
	p = f.pipeline(t)

	_, err = p.Ingest(ctx, core.NewTranscript("Keep", "replacement content"))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageUpsert, stageErr.Stage)
	assert.ErrorIs(t, err, boom)

	stored, err := f.transcripts.GetTranscript(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "original content", stored.Text)
}

func TestIngest_IdenticalReingestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	p := f.pipeline(t)

	var b strings.Builder
	for i := range 200 {
		b.WriteString("word" + strconv.Itoa(i) + " ")
	}
	text := b.String()
	chunks, err := chunking.NewDefault().SplitText(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	snapshot := func() []core.Match {
		t.Helper()
		var out []core.Match
		for i, chunk := range chunks {
			matches, err := f.vectors.Query(ctx, "lecture", mock.Vector(chunk, ai.DefaultDimension), 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, core.ChunkID(i), matches[0].ID)
			assert.Equal(t, chunk, matches[0].Text)
			assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
			out = append(out, matches[0])
		}
		return out
	}

	first, err := p.Ingest(ctx, core.NewTranscript("Lecture", text))
	require.NoError(t, err)
	before := snapshot()

	second, err := p.Ingest(ctx, core.NewTranscript("Lecture", text))
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Equal(t, len(chunks), second.ChunkCount)

	count, err := f.vectors.Count(ctx, "lecture")
	require.NoError(t, err)
	assert.Equal(t, second.ChunkCount, count)
	assert.Equal(t, before, snapshot())
}

// failingUpsert wraps a VectorStore and fails every Upsert.
type failingUpsert struct {
	storage.VectorStore
	err error
}

func (f *failingUpsert) Upsert(ctx context.Context, ns core.Namespace, records ...core.VectorRecord) error {
	return f.err
}

func TestIngest_DimensionMismatch(t *testing.T) {
	f := newFixture(t, mock.NewMockEmbedderWithDimension(8))
	p := f.pipeline(t)

	_, err := p.Ingest(context.Background(), core.NewTranscript("Video", "some text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.NotErrorIs(t, err, core.ErrExternalService)
}

func TestIngest_IndexMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mock.NewMockEmbedderWithDimension(8))
	require.NoError(t, f.vectors.EnsureIndex(ctx, storage.IndexSpec{Name: "idx", Dimension: 16, Metric: storage.MetricCosine}))

	p := f.pipeline(t, WithIndex(storage.IndexSpec{Name: "idx", Dimension: 8, Metric: storage.MetricCosine}))
	_, err := p.Ingest(ctx, core.NewTranscript("Video", "text"))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEnsureIndex, stageErr.Stage)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestIngest_InvalidTranscript(t *testing.T) {
	f := newFixture(t, nil)
	p := f.pipeline(t)

	_, err := p.Ingest(context.Background(), core.NewTranscript("!!!", "text"))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageValidate, stageErr.Stage)
	assert.ErrorIs(t, err, core.ErrEmptyNamespace)
	assert.Zero(t, f.embedder.CallCount())
}

func TestIngest_BatchesOnPool(t *testing.T) {
	f := newFixture(t, nil)
	splitter, err := chunking.New(10, 0)
	require.NoError(t, err)
	progress := &recordingProgress{}
	p := f.pipeline(t, WithSplitter(splitter), WithBatchSize(3), WithPoolSize(4), WithProgress(progress))

	session, err := p.Ingest(context.Background(), core.NewTranscript("Batched", strings.Repeat("z", 100)))
	require.NoError(t, err)

	assert.Equal(t, 10, session.ChunkCount)
	assert.Equal(t, 4, f.embedder.CallCount()) // 3+3+3+1
	assert.Equal(t, 10, progress.total)
	assert.Equal(t, 10, progress.done)
	assert.True(t, progress.finished)
}

func TestIngest_EmbeddingCountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{mock.Vector("x", ai.DefaultDimension)}, nil
	}
	f := newFixture(t, embedder)
	splitter, err := chunking.New(5, 0)
	require.NoError(t, err)
	p := f.pipeline(t, WithSplitter(splitter))

	_, err = p.Ingest(context.Background(), core.NewTranscript("Short", "0123456789"))
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestIngest_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	p := f.pipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Ingest(ctx, core.NewTranscript("Canceled", "text"))
	assert.ErrorIs(t, err, context.Canceled)
}
