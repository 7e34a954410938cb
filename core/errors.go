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

// Import error taxonomy. Callers classify failures with errors.Is.
var (
	// ErrLoad indicates a document could not be read or decoded.
	// Fatal for that document only.
	ErrLoad = errors.New("document load failed")

	// ErrEmbeddingService indicates the embedding service failed a request.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrStore indicates the vector store failed an operation.
	ErrStore = errors.New("vector store error")

	// ErrExtractionService indicates the entity extraction service failed a request.
	// Recoverable at chunk granularity.
	ErrExtractionService = errors.New("extraction service error")

	// ErrEmptyDocument indicates a document has no content left after cleaning.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrConnectivity indicates the store or embedding service is unreachable
	// at batch start. Fatal for the whole batch.
	ErrConnectivity = errors.New("connectivity check failed")
)

// Domain validation errors
var (
	// ErrInvalidTarget indicates an unknown CollectionTarget value.
	ErrInvalidTarget = errors.New("invalid collection target")

	// ErrInvalidEntity indicates an ExtractedEntity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidPoint indicates a Point failed validation.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrEmptyEntityName indicates the entity Name field is empty.
	ErrEmptyEntityName = errors.New("entity name cannot be empty")

	// ErrConfidenceRange indicates a confidence score outside [0,1].
	ErrConfidenceRange = errors.New("confidence must be between 0 and 1")

	// ErrEmptyVector indicates a point without an embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrEmptyDocumentID indicates a point or chunk without an owning document.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrCorruptRecord indicates a serialized record has an impossible length.
	ErrCorruptRecord = errors.New("corrupt record")
)
