package badger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB.
// Vectors are scanned per namespace and scored by brute-force cosine.
type VectorStore struct {
	backend *Backend
	logger  *slog.Logger

	mu   sync.RWMutex
	spec *storage.IndexSpec
}

var _ storage.VectorStore = (*VectorStore)(nil)

func newVectorStore(backend *Backend) *VectorStore {
	return &VectorStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vectors"),
	}
}

// NewVectorStore creates a vector store on the backend.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewVectorStore(backend *Backend) storage.VectorStore {
	return newVectorStore(backend)
}

// EnsureIndex creates the index if absent or verifies the stored spec matches.
func (s *VectorStore) EnsureIndex(ctx context.Context, spec storage.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	key := makeIndexSpecKey(spec.Name)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		switch {
		case err == badger.ErrKeyNotFound:
			if err := tx.Set(key, storage.MarshalIndexSpec(spec)); err != nil {
				return err
			}
			s.logger.Info("created index", "name", spec.Name, "dimension", spec.Dimension)
			return tx.Commit()
		case err != nil:
			return err
		}

		var existing storage.IndexSpec
		if err := item.Value(func(val []byte) error {
			existing, err = storage.UnmarshalIndexSpec(val)
			return err
		}); err != nil {
			return err
		}
		if existing != spec {
			return fmt.Errorf("%w: %s has dimension %d metric %s, want dimension %d metric %s",
				storage.ErrIndexMismatch, spec.Name, existing.Dimension, existing.Metric, spec.Dimension, spec.Metric)
		}
		return nil
	}, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.spec = &spec
	s.mu.Unlock()
	return nil
}

func (s *VectorStore) current() (storage.IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.spec == nil {
		return storage.IndexSpec{}, storage.ErrIndexNotReady
	}
	return *s.spec, nil
}

// Upsert writes records under the namespace, overwriting by ID.
func (s *VectorStore) Upsert(ctx context.Context, namespace core.Namespace, records ...core.VectorRecord) error {
	spec, err := s.current()
	if err != nil {
		return err
	}
	if err := storage.CheckNamespace(namespace); err != nil {
		return err
	}

	// Validate everything before the first write.
	for _, record := range records {
		if record.ID == "" {
			return fmt.Errorf("%w: record id is required", core.ErrConfiguration)
		}
		if err := core.ValidateDimension(record.Vector, spec.Dimension); err != nil {
			return fmt.Errorf("record %s: %w", record.ID, err)
		}
	}

	err = s.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeVectorKey(spec.Name, namespace, record.ID), storage.MarshalVectorRecord(record)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("upserted vectors", "namespace", namespace, "count", len(records))
	return nil
}

// Query scans the namespace and returns the k most similar records.
func (s *VectorStore) Query(ctx context.Context, namespace core.Namespace, vector []float32, k int) ([]core.Match, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := core.ValidateDimension(vector, spec.Dimension); err != nil {
		return nil, err
	}
	if k <= 0 || namespace == "" {
		return nil, nil
	}

	queryNorm := storage.Norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	top := storage.NewTopK(k)
	prefix := makeNamespacePrefix(spec.Name, namespace)
	err = s.backend.scanPrefix(ctx, prefix, true, func(item *badger.Item) error {
		id := vectorIDFromKey(prefix, item.Key())
		return item.Value(func(val []byte) error {
			record, err := storage.UnmarshalVectorRecord(val)
			if err != nil {
				return fmt.Errorf("decoding vector %s: %w", id, err)
			}
			top.Offer(id, storage.Cosine(vector, record.Vector, queryNorm), func() string { return record.Text })
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return top.Results(), nil
}

// DeleteNamespace removes every vector under the namespace.
func (s *VectorStore) DeleteNamespace(ctx context.Context, namespace core.Namespace) error {
	spec, err := s.current()
	if err != nil {
		return err
	}
	if err := storage.CheckNamespace(namespace); err != nil {
		return err
	}

	var keys [][]byte
	prefix := makeNamespacePrefix(spec.Name, namespace)
	err = s.backend.scanPrefix(ctx, prefix, false, func(item *badger.Item) error {
		keys = append(keys, item.KeyCopy(nil))
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	err = s.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, key := range keys {
			if err := wb.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("deleted namespace", "namespace", namespace, "count", len(keys))
	return nil
}

// Count returns the number of vectors in the namespace.
func (s *VectorStore) Count(ctx context.Context, namespace core.Namespace) (int, error) {
	spec, err := s.current()
	if err != nil {
		return 0, err
	}
	if namespace == "" {
		return 0, nil
	}

	count := 0
	err = s.backend.scanPrefix(ctx, makeNamespacePrefix(spec.Name, namespace), false, func(*badger.Item) error {
		count++
		return nil
	})
	return count, err
}

// Close is a no-op; the backend owns the database handle.
func (s *VectorStore) Close() error {
	return nil
}
