package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/ai/mock"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
	"github.com/poiesic/vidrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) storage.VectorStore {
	t.Helper()
	vectors, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	require.NoError(t, vectors.EnsureIndex(context.Background(), storage.IndexSpec{
		Name: storage.DefaultIndexName, Dimension: ai.DefaultDimension, Metric: storage.MetricCosine,
	}))
	return vectors
}

func seed(t *testing.T, vectors storage.VectorStore, ns core.Namespace, texts ...string) {
	t.Helper()
	records := make([]core.VectorRecord, len(texts))
	for i, text := range texts {
		records[i] = core.VectorRecord{ID: core.ChunkID(i), Vector: mock.Vector(text, ai.DefaultDimension), Text: text}
	}
	require.NoError(t, vectors.Upsert(context.Background(), ns, records...))
}

// recordingMonitor implements Monitor for testing
type recordingMonitor struct {
	started  bool
	embedded bool
	finished []core.Match
}

func (m *recordingMonitor) Start(_ core.Namespace, _ string) { m.started = true }
func (m *recordingMonitor) AfterEmbedding(_ []float32)       { m.embedded = true }
func (m *recordingMonitor) Finish(matches []core.Match)      { m.finished = matches }

func TestNewRetriever(t *testing.T) {
	vectors := newStore(t)
	provider := mock.NewMockProvider()

	r, err := NewRetriever(vectors, provider)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, r.TopK())

	_, err = NewRetriever(nil, provider)
	assert.Equal(t, ErrVectorStoreRequired, err)
	_, err = NewRetriever(vectors, nil)
	assert.Equal(t, ErrAIProviderRequired, err)
	_, err = NewRetriever(vectors, provider, WithTopK(0))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestRetrieve_TopFourWithinNamespace(t *testing.T) {
	ctx := context.Background()
	vectors := newStore(t)
	texts := make([]string, 6)
	for i := range texts {
		texts[i] = fmt.Sprintf("segment %d of the talk", i)
	}
	seed(t, vectors, "talk", texts...)
	seed(t, vectors, "other", "segment 2 of the talk")

	r, err := NewRetriever(vectors, mock.NewMockProvider())
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	matches, err := r.RetrieveWithMonitor(ctx, "talk", "segment 2 of the talk", monitor)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	assert.Equal(t, "chunk-2", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}

	assert.True(t, monitor.started)
	assert.True(t, monitor.embedded)
	assert.Equal(t, matches, monitor.finished)
}

func TestRetrieve_EmptyNamespace(t *testing.T) {
	r, err := NewRetriever(newStore(t), mock.NewMockProvider())
	require.NoError(t, err)

	matches, err := r.Retrieve(context.Background(), "never_ingested", "anything")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieve_MinScore(t *testing.T) {
	vectors := newStore(t)
	seed(t, vectors, "ns", "alpha", "beta", "gamma")

	r, err := NewRetriever(vectors, mock.NewMockProvider(), WithMinScore(0.99))
	require.NoError(t, err)

	matches, err := r.Retrieve(context.Background(), "ns", "beta")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "beta", matches[0].Text)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("timeout")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator())

	r, err := NewRetriever(newStore(t), provider)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "ns", "q")
	assert.ErrorIs(t, err, core.ErrExternalService)
}

func TestJoinContext(t *testing.T) {
	assert.Equal(t, "", JoinContext(nil))
	assert.Equal(t, "a\n\nb", JoinContext([]core.Match{{Text: "a"}, {Text: "b"}}))
}
