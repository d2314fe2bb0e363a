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


package core

import (
	"fmt"
	"strings"
)

// ValidateTranscript validates a Transcript before ingestion.
//
// Validation rules:
//   - Text must not be blank
//   - Namespace must not be empty
//
// NOT validated:
//   - Metadata (optional)
//   - Fingerprint (recomputed by storage when zero)
func ValidateTranscript(t *Transcript) error {
	if t == nil {
		return fmt.Errorf("%w: transcript is nil", ErrInvalidTranscript)
	}

	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTranscript, ErrEmptyContent)
	}

	if t.Namespace == "" {
		return fmt.Errorf("%w: %w (title %q)", ErrInvalidTranscript, ErrEmptyNamespace, t.Title)
	}

	return nil
}

// ValidateQuizQuestion validates a QuizQuestion.
//
// Validation rules:
//   - Prompt must not be blank
//   - All four options must be non-blank
//   - Correct must be one of A, B, C, D
//
// Duplicate option text is allowed.
func ValidateQuizQuestion(q *QuizQuestion) error {
	if q == nil {
		return fmt.Errorf("%w: question is nil", ErrInvalidQuizQuestion)
	}

	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuizQuestion, ErrEmptyContent)
	}

	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %s is empty", ErrInvalidQuizQuestion, OptionLetters[i])
		}
	}

	if q.CorrectOption() == "" {
		return fmt.Errorf("%w: %w: got %q", ErrInvalidQuizQuestion, ErrInvalidCorrectLetter, q.Correct)
	}

	return nil
}

// ValidateDimension checks that a vector matches the configured dimension.
func ValidateDimension(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("%w: embedding dimension %d does not match index dimension %d",
			ErrConfiguration, len(vector), dimension)
	}
	return nil
}
