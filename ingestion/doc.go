// Package ingestion orchestrates importing markdown documents into the
// vector store.
//
// The Importer runs each document through a fixed sequence:
//   - skip check against the store when skip-existing is enabled
//   - load and clean the file
//   - chunk the cleaned text
//   - embed and store chunks in the collection chosen by routing
//   - gate and extract entities, unless routing or configuration forbids it
//
// Failures are captured per document in core.ImportResult and never abort
// a batch. Only a connectivity failure before the first document is fatal
// for the whole batch.
package ingestion
