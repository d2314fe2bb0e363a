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


// Package ai provides abstractions for the AI services used by vidrag.
//
// The package defines three interfaces:
//
//   - Embedder: maps text to a fixed-dimension vector
//   - Generator: turns a Prompt (system instruction, context, history, query) into text
//   - AIProvider: aggregates both for initialization and lifecycle management
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (OpenAI, Ollama, vLLM) through langchaingo
//   - ai/gemini: Google Gemini through generative-ai-go
//   - ai/mock: test doubles for unit tests without external services
//
// Use NewProvider in this package's sub-packages, or pick one from Config.Provider
// with the root vidrag package.
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, gemini.NewGenerator, etc.) return
// INTERFACE types. Mock constructors (mock.NewMockEmbedder, mock.NewMockGenerator)
// return CONCRETE types so tests can inject behavior and inspect call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
//	gen := mock.NewMockGenerator()              // returns *mock.MockGenerator
//	gen.GenerateFunc = func(ctx context.Context, p ai.Prompt) (string, error) { ... }
//
// # Failure Semantics
//
// Implementations never retry. A failed call is returned as-is; callers wrap
// it in core.ErrExternalService and decide whether to try again.
package ai
