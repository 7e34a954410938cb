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

package reembed

import (
	"context"

	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
)

const (
	// DefaultBatchSize is the default number of points to fetch in each batch
	DefaultBatchSize = 100
)

// PointIterator pages through a collection in point ID order.
type PointIterator struct {
	store      storage.VectorStore
	collection string
	batchSize  int
}

// NewPointIterator creates a new point iterator.
// batchSize: number of points to fetch in each batch (defaults when <= 0)
func NewPointIterator(store storage.VectorStore, collection string, batchSize int) *PointIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &PointIterator{
		store:      store,
		collection: collection,
		batchSize:  batchSize,
	}
}

// ForEach calls fn for each batch of points starting at offset, or at the
// beginning when offset is nil. fn receives the offset of the batch after
// this one, nil on the last batch.
// Iteration stops on first error from fn or when all points are processed.
// Context cancellation is checked between batches.
func (it *PointIterator) ForEach(ctx context.Context, offset *core.ID, fn func(points []*core.Point, next *core.ID) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		points, next, err := it.store.Scroll(ctx, it.collection, offset, it.batchSize)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}

		if err := fn(points, next); err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		offset = next
	}
}
