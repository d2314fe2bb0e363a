// Package qa answers questions about one ingested video.
//
// An Engine holds a single conversation: it retrieves the chunks closest to
// each question, asks the generator to answer from those chunks only, and
// remembers the last few exchanges in a bounded History. A failed answer
// leaves the history unchanged.
package qa
