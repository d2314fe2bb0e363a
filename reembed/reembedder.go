// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/ingestion"
	"github.com/poiesic/vidrag/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// MaxRetries is the maximum number of attempts per transcript
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Failure names a transcript that could not be reembedded.
type Failure struct {
	Namespace core.Namespace
	Err       error
}

// Report summarizes a reembedding run.
type Report struct {
	Total      int
	Reembedded int
	Chunks     int
	Failures   []Failure
	Elapsed    time.Duration
}

// Err joins the failures into one error, or returns nil when there were none.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("%s: %w", f.Namespace, f.Err)
	}
	return errors.Join(errs...)
}

// Reembedder re-ingests every stored transcript.
type Reembedder struct {
	transcripts storage.TranscriptRepository
	pipeline    *ingestion.Pipeline
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(transcripts storage.TranscriptRepository, pipeline *ingestion.Pipeline, config *Config, progress io.Writer) (*Reembedder, error) {
	if transcripts == nil {
		return nil, ErrTranscriptRepositoryRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, ErrInvalidMaxAttempts)
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		transcripts: transcripts,
		pipeline:    pipeline,
		config:      config,
		progress:    progress,
		logger:      slog.Default().With("component", "reembed"),
	}, nil
}

// Run reembeds all transcripts. A transcript that still fails after its
// retries is recorded in the report and the run continues. The returned
// error is non-nil only when listing transcripts fails or ctx is done.
func (r *Reembedder) Run(ctx context.Context) (*Report, error) {
	transcripts, err := r.transcripts.ListTranscripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	report := &Report{Total: len(transcripts)}
	if report.Total == 0 {
		fmt.Fprintf(r.progress, "No transcripts found (0 transcripts)\n")
		return report, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d transcripts\n", report.Total)
	tracker := NewProgressTracker(r.progress, "transcripts", 1)
	tracker.Start(report.Total)

	for _, transcript := range transcripts {
		var session *core.Session
		err := RetryWithBackoff(ctx, func() error {
			var err error
			session, err = r.pipeline.Ingest(ctx, transcript)
			return err
		}, r.config.MaxRetries, r.config.RetryDelay)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		if err != nil {
			r.logger.Error("failed to reembed transcript", "namespace", transcript.Namespace, "err", err)
			report.Failures = append(report.Failures, Failure{Namespace: transcript.Namespace, Err: err})
		} else {
			report.Reembedded++
			report.Chunks += session.ChunkCount
		}
		tracker.Increment(1)
	}

	tracker.Finish()
	report.Elapsed = tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. %d of %d transcripts (%d chunks) in %v\n",
		report.Reembedded, report.Total, report.Chunks, report.Elapsed.Round(time.Millisecond))

	return report, nil
}
