// Package storagetest holds behavior tests shared by every storage backend.
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Spec is the index the suites create.
var Spec = storage.IndexSpec{Name: "contract", Dimension: 4, Metric: storage.MetricCosine}

// VectorStoreTests runs the VectorStore contract against stores built by open.
// open must return an empty store on which EnsureIndex has not been called.
func VectorStoreTests(t *testing.T, open func(t *testing.T) storage.VectorStore) {
	ctx := context.Background()

	ready := func(t *testing.T) storage.VectorStore {
		s := open(t)
		require.NoError(t, s.EnsureIndex(ctx, Spec))
		return s
	}

	t.Run("EnsureIndexIdempotent", func(t *testing.T) {
		s := ready(t)
		require.NoError(t, s.EnsureIndex(ctx, Spec))
	})

	t.Run("EnsureIndexMismatch", func(t *testing.T) {
		s := ready(t)
		other := Spec
		other.Dimension = Spec.Dimension + 1
		assert.ErrorIs(t, s.EnsureIndex(ctx, other), core.ErrConfiguration)
	})

	t.Run("OperationsBeforeEnsureIndex", func(t *testing.T) {
		s := open(t)
		_, err := s.Query(ctx, "ns", make([]float32, Spec.Dimension), 1)
		assert.ErrorIs(t, err, storage.ErrIndexNotReady)
	})

	t.Run("QueryOrdersByCosine", func(t *testing.T) {
		s := ready(t)
		require.NoError(t, s.Upsert(ctx, "ns",
			core.VectorRecord{ID: "chunk-0", Vector: []float32{0, 1, 0, 0}, Text: "far"},
			core.VectorRecord{ID: "chunk-1", Vector: []float32{1, 0, 0, 0}, Text: "exact"},
			core.VectorRecord{ID: "chunk-2", Vector: []float32{1, 1, 0, 0}, Text: "near"},
		))

		matches, err := s.Query(ctx, "ns", []float32{2, 0, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, []string{"exact", "near", "far"}, []string{matches[0].Text, matches[1].Text, matches[2].Text})
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
		}

		matches, err = s.Query(ctx, "ns", []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "chunk-1", matches[0].ID)
	})

	t.Run("UpsertOverwritesByID", func(t *testing.T) {
		s := ready(t)
		require.NoError(t, s.Upsert(ctx, "ns", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0, 0, 0}, Text: "v1"}))
		require.NoError(t, s.Upsert(ctx, "ns", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0, 0, 0}, Text: "v2"}))

		n, err := s.Count(ctx, "ns")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		matches, err := s.Query(ctx, "ns", []float32{1, 0, 0, 0}, 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "v2", matches[0].Text)
	})

	t.Run("UpsertRejectsWrongDimension", func(t *testing.T) {
		s := ready(t)
		err := s.Upsert(ctx, "ns", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0}})
		assert.ErrorIs(t, err, core.ErrConfiguration)

		_, err = s.Query(ctx, "ns", []float32{1}, 1)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})

	t.Run("NamespacesAreIsolated", func(t *testing.T) {
		s := ready(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.Upsert(ctx, "one", core.VectorRecord{ID: core.ChunkID(i), Vector: []float32{1, 0, 0, 0}, Text: fmt.Sprint("one-", i)}))
		}
		require.NoError(t, s.Upsert(ctx, "one_more", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0, 0, 0}, Text: "other"}))

		matches, err := s.Query(ctx, "one", []float32{1, 0, 0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, matches, 3)
		for _, m := range matches {
			assert.NotEqual(t, "other", m.Text)
		}

		matches, err = s.Query(ctx, "missing", []float32{1, 0, 0, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("DeleteNamespace", func(t *testing.T) {
		s := ready(t)
		require.NoError(t, s.Upsert(ctx, "drop", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0, 0, 0}}))
		require.NoError(t, s.Upsert(ctx, "keep", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0, 0, 0}}))

		require.NoError(t, s.DeleteNamespace(ctx, "drop"))
		require.NoError(t, s.DeleteNamespace(ctx, "never_written"))

		n, err := s.Count(ctx, "drop")
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = s.Count(ctx, "keep")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("NonCanonicalNamespace", func(t *testing.T) {
		s := ready(t)
		err := s.Upsert(ctx, "Has Spaces", core.VectorRecord{ID: "chunk-0", Vector: []float32{1, 0, 0, 0}})
		assert.ErrorIs(t, err, storage.ErrNonCanonicalNamespace)
	})
}

// TranscriptRepositoryTests runs the TranscriptRepository contract against
// empty repositories built by open.
func TranscriptRepositoryTests(t *testing.T, open func(t *testing.T) storage.TranscriptRepository) {
	ctx := context.Background()

	t.Run("SaveAndGetCaseInsensitive", func(t *testing.T) {
		r := open(t)
		tr := core.NewTranscript("Go Concurrency Patterns", "goroutines and channels")
		tr.Metadata = &core.VideoMetadata{URL: "https://example.com/v", Tags: []string{"go"}}
		require.NoError(t, r.SaveTranscript(ctx, tr))

		for _, key := range []core.Namespace{"go_concurrency_patterns", "GO_CONCURRENCY_PATTERNS", "Go Concurrency Patterns"} {
			got, err := r.GetTranscript(ctx, key)
			require.NoError(t, err, key)
			assert.Equal(t, tr.Text, got.Text)
			assert.Equal(t, tr.Title, got.Title)
			assert.Equal(t, tr.Fingerprint, got.Fingerprint)
			assert.Equal(t, tr.Metadata, got.Metadata)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		r := open(t)
		_, err := r.GetTranscript(ctx, "absent")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		r := open(t)
		require.NoError(t, r.SaveTranscript(ctx, core.NewTranscript("Same Title", "first")))
		require.NoError(t, r.SaveTranscript(ctx, core.NewTranscript("same title", "second")))

		got, err := r.GetTranscript(ctx, "same_title")
		require.NoError(t, err)
		assert.Equal(t, "second", got.Text)

		all, err := r.ListTranscripts(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		r := open(t)
		require.NoError(t, r.SaveTranscript(ctx, core.NewTranscript("Beta", "b")))
		require.NoError(t, r.SaveTranscript(ctx, core.NewTranscript("Alpha", "a")))

		all, err := r.ListTranscripts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, core.Namespace("alpha"), all[0].Namespace)
		assert.Equal(t, core.Namespace("beta"), all[1].Namespace)

		require.NoError(t, r.DeleteTranscript(ctx, "alpha"))
		assert.ErrorIs(t, r.DeleteTranscript(ctx, "alpha"), core.ErrNotFound)
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		r := open(t)
		assert.ErrorIs(t, r.SaveTranscript(ctx, core.NewTranscript("", "text")), core.ErrInvalidTranscript)
	})
}
