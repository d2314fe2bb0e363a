// Package reembed rebuilds every stored transcript's vectors with the
// configured embedder, for use after switching embedding models.
//
// Each transcript is re-ingested through the normal pipeline, so chunking,
// clear-before-upsert and dimension checks apply unchanged. Failed
// transcripts are retried with exponential backoff and reported without
// stopping the run.
package reembed
