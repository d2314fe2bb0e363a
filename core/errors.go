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

import "errors"

// Error classes shared across the pipeline. Callers test for them with errors.Is.
var (
	// ErrConfiguration indicates invalid parameters such as chunk sizes or an
	// embedding dimension that does not match the index. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound indicates a missing transcript or namespace.
	// Recoverable by ingesting the video again.
	ErrNotFound = errors.New("not found")

	// ErrExternalService indicates an embedding, generation or index call failed.
	// Retrying is left to the caller.
	ErrExternalService = errors.New("external service error")
)

// Domain validation errors
var (
	// ErrInvalidTranscript indicates a Transcript failed validation.
	ErrInvalidTranscript = errors.New("invalid transcript")

	// ErrInvalidQuizQuestion indicates a QuizQuestion failed validation.
	ErrInvalidQuizQuestion = errors.New("invalid quiz question")

	// ErrEmptyContent indicates required text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyNamespace indicates a title normalized to an empty namespace.
	ErrEmptyNamespace = errors.New("namespace cannot be empty")

	// ErrInvalidCorrectLetter indicates a correct answer outside A-D.
	ErrInvalidCorrectLetter = errors.New("correct answer must be one of A, B, C, D")
)
