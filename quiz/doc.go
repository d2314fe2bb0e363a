// Package quiz generates multiple-choice quizzes from transcripts.
//
// Generators are asked for structured JSON first. Replies that cannot be
// decoded fall back to Parse, a lenient extractor for numbered free-text
// quizzes. Parse never fails: candidates it cannot use are reported in
// Result.Rejected alongside the questions it could.
package quiz
