package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// VectorStore implements storage.VectorStore with brute-force cosine over rows.
type VectorStore struct {
	db     *DB
	logger *slog.Logger

	mu   sync.RWMutex
	spec *storage.IndexSpec
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store on db.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewVectorStore(db *DB) storage.VectorStore {
	return &VectorStore{db: db, logger: slog.Default().With("component", "sqlite-vectors")}
}

// EnsureIndex creates the index row if absent or verifies it matches.
func (s *VectorStore) EnsureIndex(ctx context.Context, spec storage.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	var existing storage.IndexSpec
	err := s.db.db.QueryRowContext(ctx,
		"SELECT name, dimension, metric FROM vector_indexes WHERE name = ?", spec.Name,
	).Scan(&existing.Name, &existing.Dimension, &existing.Metric)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.db.ExecContext(ctx,
			"INSERT INTO vector_indexes (name, dimension, metric) VALUES (?, ?, ?)",
			spec.Name, spec.Dimension, string(spec.Metric),
		); err != nil {
			return fmt.Errorf("creating index %s: %w", spec.Name, err)
		}
		s.logger.Info("created index", "name", spec.Name, "dimension", spec.Dimension)
	case err != nil:
		return fmt.Errorf("reading index %s: %w", spec.Name, err)
	case existing != spec:
		return fmt.Errorf("%w: %s has dimension %d metric %s, want dimension %d metric %s",
			storage.ErrIndexMismatch, spec.Name, existing.Dimension, existing.Metric, spec.Dimension, spec.Metric)
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

// Upsert inserts or replaces records in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, namespace core.Namespace, records ...core.VectorRecord) error {
	spec, err := s.current()
	if err != nil {
		return err
	}
	if err := storage.CheckNamespace(namespace); err != nil {
		return err
	}
	for _, record := range records {
		if record.ID == "" {
			return fmt.Errorf("%w: record id is required", core.ErrConfiguration)
		}
		if err := core.ValidateDimension(record.Vector, spec.Dimension); err != nil {
			return fmt.Errorf("record %s: %w", record.ID, err)
		}
	}

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (index_name, namespace, id, text_chunk, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (index_name, namespace, id)
		DO UPDATE SET text_chunk = excluded.text_chunk, embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, spec.Name, string(namespace), record.ID, record.Text, storage.EncodeVector(record.Vector)); err != nil {
			return fmt.Errorf("upserting record %s: %w", record.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Debug("upserted vectors", "namespace", namespace, "count", len(records))
	return nil
}

// Query scans the namespace and returns the k most similar records.
// Only ids and embeddings are read during the scan; texts are fetched for the winners.
func (s *VectorStore) Query(ctx context.Context, namespace core.Namespace, vector []float32, k int) ([]core.Match, error) {
	spec, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := core.ValidateDimension(vector, spec.Dimension); err != nil {
		return nil, err
	}
	queryNorm := storage.Norm(vector)
	if k <= 0 || namespace == "" || queryNorm == 0 {
		return nil, nil
	}

	rows, err := s.db.db.QueryContext(ctx,
		"SELECT id, embedding FROM vectors WHERE index_name = ? AND namespace = ?", spec.Name, string(namespace))
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}

	top := storage.NewTopK(k)
	noText := func() string { return "" }
	var buf []float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = storage.DecodeVectorInto(buf, blob)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		top.Offer(id, storage.Cosine(vector, buf, queryNorm), noText)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	matches := top.Results()
	for i := range matches {
		if err := s.db.db.QueryRowContext(ctx,
			"SELECT text_chunk FROM vectors WHERE index_name = ? AND namespace = ? AND id = ?",
			spec.Name, string(namespace), matches[i].ID,
		).Scan(&matches[i].Text); err != nil {
			return nil, fmt.Errorf("fetching text for %s: %w", matches[i].ID, err)
		}
	}
	return matches, nil
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
	res, err := s.db.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE index_name = ? AND namespace = ?", spec.Name, string(namespace))
	if err != nil {
		return fmt.Errorf("deleting namespace %s: %w", namespace, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.logger.Debug("deleted namespace", "namespace", namespace, "count", n)
	}
	return nil
}

// Count returns the number of vectors in the namespace.
func (s *VectorStore) Count(ctx context.Context, namespace core.Namespace) (int, error) {
	spec, err := s.current()
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE index_name = ? AND namespace = ?", spec.Name, string(namespace),
	).Scan(&count)
	return count, err
}

// Close is a no-op; DB owns the connection.
func (s *VectorStore) Close() error {
	return nil
}
