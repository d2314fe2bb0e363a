package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// TranscriptRepository implements storage.TranscriptRepository for BadgerDB.
type TranscriptRepository struct {
	backend *Backend
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a transcript repository on the backend.
//
// Returns storage.TranscriptRepository interface to enforce abstraction.
func NewTranscriptRepository(backend *Backend) storage.TranscriptRepository {
	return &TranscriptRepository{backend: backend}
}

// SaveTranscript stores the transcript under its namespace.
func (r *TranscriptRepository) SaveTranscript(ctx context.Context, transcript *core.Transcript) error {
	if err := core.ValidateTranscript(transcript); err != nil {
		return err
	}
	if transcript.Fingerprint == 0 {
		transcript.Fingerprint = core.IDFromContent(transcript.Text)
	}
	value := storage.MarshalTranscript(transcript)
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeTranscriptKey(transcript.Namespace), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetTranscript retrieves a transcript, normalizing the lookup key first.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, namespace core.Namespace) (*core.Transcript, error) {
	ns := core.Normalize(string(namespace))
	var transcript *core.Transcript
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTranscriptKey(ns))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("transcript %q: %w", namespace, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			transcript, err = storage.UnmarshalTranscript(val)
			return err
		})
	}, false)
	return transcript, err
}

// ListTranscripts returns all transcripts in key order.
func (r *TranscriptRepository) ListTranscripts(ctx context.Context) ([]*core.Transcript, error) {
	var out []*core.Transcript
	err := r.backend.scanPrefix(ctx, []byte(transcriptPrefix+":"), true, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			transcript, err := storage.UnmarshalTranscript(val)
			if err != nil {
				return err
			}
			out = append(out, transcript)
			return nil
		})
	})
	return out, err
}

// DeleteTranscript removes the transcript for a namespace.
func (r *TranscriptRepository) DeleteTranscript(ctx context.Context, namespace core.Namespace) error {
	key := makeTranscriptKey(core.Normalize(string(namespace)))
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("transcript %q: %w", namespace, storage.ErrNotFound)
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close is a no-op; the backend owns the database handle.
func (r *TranscriptRepository) Close() error {
	return nil
}
