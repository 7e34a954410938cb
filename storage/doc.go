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


// Package storage provides the vector store abstraction for lorevault.
//
// A VectorStore holds named collections of embedded points. Each point
// carries the ID of the document it came from so that a document can be
// found, listed and removed as a unit. Two backends exist:
//
//   - storage/badger: an embedded store on BadgerDB with brute-force
//     cosine search, suited to local use and tests
//   - storage/qdrant: a client for a Qdrant server over its REST API
//
// # Constructor Return Type Pattern
//
// Public constructors return the VectorStore interface:
//
//	store, err := badger.NewStore(path)   // returns storage.VectorStore
//	store, err := qdrant.NewStore(url)    // returns storage.VectorStore
//
// Internal constructors (newStore, newBackend) return concrete types since
// they are only used within the implementation package.
//
// # Point IDs
//
// Points are addressed by core.PointID, which packs a hash of the document
// ID into the high bits and the chunk index into the low 24 bits. Writing
// the same document twice overwrites the same points.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
