// Package ingestion turns a transcript into a searchable namespace.
//
// Pipeline.Ingest runs these stages in order and aborts on the first failure,
// reporting the stage in a *StageError:
//   - validate the transcript
//   - ensure the vector index exists
//   - split the text into overlapping chunks
//   - embed the chunks in batches on a bounded worker pool
//   - clear the namespace, then upsert chunk i under id "chunk-i"
//   - store the raw transcript
//
// Ingest returns only after every batch has completed. Nothing is retried.
package ingestion
