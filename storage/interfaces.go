package storage

import (
	"context"

	"github.com/poiesic/lorevault/core"
)

// VectorStore is a collection-partitioned store of embedded points.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// EnsureCollection creates the named collection with the given vector
	// dimension if it does not exist. An existing collection with a different
	// dimension yields ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// CollectionInfo describes a collection.
	// Returns ErrCollectionNotFound if it does not exist.
	CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error)

	// Upsert writes points, replacing any with the same ID.
	// Every point must pass core.ValidatePoint and match the collection dimension.
	Upsert(ctx context.Context, collection string, points ...*core.Point) error

	// ExistsByDocument reports whether any point in the collection belongs
	// to documentID.
	ExistsByDocument(ctx context.Context, collection, documentID string) (bool, error)

	// ScrollByDocument returns every point belonging to documentID, ordered by ID.
	ScrollByDocument(ctx context.Context, collection, documentID string) ([]*core.Point, error)

	// Scroll pages through a collection in ID order. offset is the first ID
	// to return (nil starts at the beginning). The returned next offset is
	// nil when there are no more points.
	Scroll(ctx context.Context, collection string, offset *core.ID, limit int) ([]*core.Point, *core.ID, error)

	// DeleteByDocument removes every point belonging to documentID and
	// returns how many were removed.
	DeleteByDocument(ctx context.Context, collection, documentID string) (int, error)

	// Search returns up to limit points with cosine similarity >= minScore,
	// best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]*core.ScoredPoint, error)

	// Close releases resources held by the store.
	Close() error
}

// CheckpointStore persists progress markers for resumable passes.
// Stores that cannot hold them simply do not implement it.
type CheckpointStore interface {
	// SaveCheckpoint persists a checkpoint, replacing any with the same name.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves a checkpoint by name.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// ClearCheckpoint removes a checkpoint. Missing checkpoints are not an error.
	ClearCheckpoint(ctx context.Context, name string) error
}
