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


// Package storage provides the storage abstraction layer for vidrag.
//
// It defines two contracts:
//
//   - VectorStore: namespaced vector records with cosine top-k queries
//   - TranscriptRepository: one raw transcript per namespace
//
// Backends live in subpackages. storage/badger is an embedded key-value
// store; storage/sqlite keeps everything in a single database file.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interfaces, not the concrete types:
//
//	vectors, transcripts, err := badger.NewStores(backend)
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Namespaces
//
// Every vector record lives under a core.Namespace. Records in one
// namespace are never returned for a query against another. Ids are unique
// per namespace and writes overwrite by id.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
package storage
