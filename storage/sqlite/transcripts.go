package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// TranscriptRepository implements storage.TranscriptRepository on the transcripts table.
type TranscriptRepository struct {
	db *DB
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a transcript repository on db.
//
// Returns storage.TranscriptRepository interface to enforce abstraction.
func NewTranscriptRepository(db *DB) storage.TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// SaveTranscript inserts or replaces the transcript for its namespace.
func (r *TranscriptRepository) SaveTranscript(ctx context.Context, transcript *core.Transcript) error {
	if err := core.ValidateTranscript(transcript); err != nil {
		return err
	}
	if transcript.Fingerprint == 0 {
		transcript.Fingerprint = core.IDFromContent(transcript.Text)
	}

	var metadata sql.NullString
	if transcript.Metadata != nil {
		data, err := json.Marshal(transcript.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO transcripts (namespace, title, text, fingerprint, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace) DO UPDATE SET
			title = excluded.title, text = excluded.text, fingerprint = excluded.fingerprint,
			metadata = excluded.metadata, created_at = excluded.created_at`,
		string(transcript.Namespace), transcript.Title, transcript.Text,
		int64(transcript.Fingerprint), metadata, transcript.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving transcript %s: %w", transcript.Namespace, err)
	}
	return nil
}

const selectTranscript = "SELECT namespace, title, text, fingerprint, metadata, created_at FROM transcripts"

// GetTranscript looks up a transcript by normalized namespace.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, namespace core.Namespace) (*core.Transcript, error) {
	row := r.db.db.QueryRowContext(ctx, selectTranscript+" WHERE namespace = ?", string(core.Normalize(string(namespace))))
	transcript, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcript %q: %w", namespace, storage.ErrNotFound)
	}
	return transcript, err
}

// ListTranscripts returns all transcripts ordered by namespace.
func (r *TranscriptRepository) ListTranscripts(ctx context.Context) ([]*core.Transcript, error) {
	rows, err := r.db.db.QueryContext(ctx, selectTranscript+" ORDER BY namespace")
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	defer rows.Close()

	var out []*core.Transcript
	for rows.Next() {
		transcript, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, transcript)
	}
	return out, rows.Err()
}

// DeleteTranscript removes the transcript for a namespace.
func (r *TranscriptRepository) DeleteTranscript(ctx context.Context, namespace core.Namespace) error {
	res, err := r.db.db.ExecContext(ctx, "DELETE FROM transcripts WHERE namespace = ?", string(core.Normalize(string(namespace))))
	if err != nil {
		return fmt.Errorf("deleting transcript %s: %w", namespace, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transcript %q: %w", namespace, storage.ErrNotFound)
	}
	return nil
}

// Close is a no-op; DB owns the connection.
func (r *TranscriptRepository) Close() error {
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row scanner) (*core.Transcript, error) {
	var (
		t           core.Transcript
		namespace   string
		fingerprint int64
		metadata    sql.NullString
		createdAt   string
	)
	if err := row.Scan(&namespace, &t.Title, &t.Text, &fingerprint, &metadata, &createdAt); err != nil {
		return nil, err
	}
	t.Namespace = core.Namespace(namespace)
	t.Fingerprint = core.ID(uint64(fingerprint))

	if metadata.Valid {
		t.Metadata = &core.VideoMetadata{}
		if err := json.Unmarshal([]byte(metadata.String), t.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata for %s: %w", storage.ErrSerializationFailed, namespace, err)
		}
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", namespace, err)
	}
	t.CreatedAt = created
	return &t, nil
}
