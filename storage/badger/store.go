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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
)

// Store implements storage.VectorStore on BadgerDB.
// Search is a full scan of the collection.
type Store struct {
	backend *Backend
	ownsDB  bool
	logger  *slog.Logger
}

var (
	_ storage.VectorStore     = (*Store)(nil)
	_ storage.CheckpointStore = (*Store)(nil)
)

// NewStore opens (or creates) a store at path.
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(path string) (storage.VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	s := newStore(backend)
	s.ownsDB = true
	return s, nil
}

// NewMemoryStore creates a store that lives only in memory.
func NewMemoryStore() (storage.VectorStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	s := newStore(backend)
	s.ownsDB = true
	return s, nil
}

// NewStoreWithBackend creates a store over an already opened backend.
// Closing the store leaves the backend open.
func NewStoreWithBackend(backend *Backend) (storage.VectorStore, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	return newStore(backend), nil
}

func newStore(backend *Backend) *Store {
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "badger-store"),
	}
}

// Ping checks that the database is open.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// EnsureCollection creates the collection if missing.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if !validCollectionName(name) {
		return fmt.Errorf("%w: collection name %q", storage.ErrInvalidQuery, name)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", storage.ErrInvalidQuery, dimension)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := getCollection(tx, name)
		switch {
		case err == nil:
			if existing.Dimension != dimension {
				return fmt.Errorf("%w: collection %s has dimension %d, want %d",
					storage.ErrDimensionMismatch, name, existing.Dimension, dimension)
			}
			return nil
		case !errors.Is(err, storage.ErrCollectionNotFound):
			return err
		}

		info := &core.CollectionInfo{Name: name, Dimension: dimension}
		if err := tx.Set(makeCollectionKey(name), storage.MarshalCollectionInfo(info)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.logger.Info("created collection", "name", name, "dimension", dimension)
		return nil
	}, true)
}

// CollectionInfo returns the collection's dimension and point count.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error) {
	var info *core.CollectionInfo
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = getCollection(tx, name)
		if err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePointPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			info.PointsCount++
		}
		info.Status = "green"
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Upsert writes points into the collection.
func (s *Store) Upsert(ctx context.Context, collection string, points ...*core.Point) error {
	if len(points) == 0 {
		return nil
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		info, err := getCollection(tx, collection)
		if err != nil {
			return err
		}

		for _, p := range points {
			if err := core.ValidatePoint(p); err != nil {
				return err
			}
			if len(p.Vector) != info.Dimension {
				return fmt.Errorf("%w: point %d has %d values, collection %s wants %d",
					storage.ErrDimensionMismatch, p.ID, len(p.Vector), collection, info.Dimension)
			}
			if err := tx.Set(makePointKey(collection, p.ID), storage.MarshalPoint(p)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ExistsByDocument reports whether the collection holds any point of documentID.
func (s *Store) ExistsByDocument(ctx context.Context, collection, documentID string) (bool, error) {
	found := false
	err := s.scanDocument(collection, documentID, func(*core.Point) bool {
		found = true
		return false
	})
	return found, err
}

// ScrollByDocument returns all points of documentID in ID order.
func (s *Store) ScrollByDocument(ctx context.Context, collection, documentID string) ([]*core.Point, error) {
	var points []*core.Point
	err := s.scanDocument(collection, documentID, func(p *core.Point) bool {
		points = append(points, p)
		return true
	})
	return points, err
}

// Scroll pages through the collection in ID order.
func (s *Store) Scroll(ctx context.Context, collection string, offset *core.ID, limit int) ([]*core.Point, *core.ID, error) {
	if limit <= 0 {
		return nil, nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var points []*core.Point
	var next *core.ID
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := getCollection(tx, collection); err != nil {
			return err
		}

		prefix := makePointPrefix(collection)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := prefix
		if offset != nil {
			start = makePointKey(collection, *offset)
		}
		for iter.Seek(start); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(points) == limit {
				id := pointIDFromKey(iter.Item().Key())
				next = &id
				return nil
			}
			p, err := readPoint(iter.Item())
			if err != nil {
				return err
			}
			points = append(points, p)
		}
		return nil
	}, false)
	if err != nil {
		return nil, nil, err
	}
	return points, next, nil
}

// DeleteByDocument removes all points of documentID from the collection.
func (s *Store) DeleteByDocument(ctx context.Context, collection, documentID string) (int, error) {
	var keys [][]byte
	err := s.scanDocument(collection, documentID, func(p *core.Point) bool {
		keys = append(keys, makePointKey(collection, p.ID))
		return true
	})
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	if err := s.backend.DeleteKeys(keys); err != nil {
		return 0, err
	}
	s.logger.Debug("deleted document points", "collection", collection, "document", documentID, "count", len(keys))
	return len(keys), nil
}

// Search scores every point in the collection against vector.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]*core.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*core.ScoredPoint
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		info, err := getCollection(tx, collection)
		if err != nil {
			return err
		}
		if len(vector) != info.Dimension {
			return fmt.Errorf("%w: query has %d values, collection %s wants %d",
				storage.ErrDimensionMismatch, len(vector), collection, info.Dimension)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := readPoint(iter.Item())
			if err != nil {
				return err
			}
			score := cosineSimilarity(vector, p.Vector)
			if score >= minScore {
				results = append(results, &core.ScoredPoint{Point: p, Score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.ScoredPoint) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.ownsDB || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// scanDocument calls fn for every point of documentID until fn returns false.
// Points sharing the document key prefix but owned by another document are skipped.
func (s *Store) scanDocument(collection, documentID string, fn func(*core.Point) bool) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := getCollection(tx, collection); err != nil {
			return err
		}

		prefix := makeDocumentPrefix(collection, documentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
			p, err := readPoint(iter.Item())
			if err != nil {
				return err
			}
			if p.DocumentID != documentID {
				continue
			}
			if !fn(p) {
				return nil
			}
		}
		return nil
	}, false)
}

func getCollection(tx *badger.Txn, name string) (*core.CollectionInfo, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
		}
		return nil, err
	}
	var info *core.CollectionInfo
	err = item.Value(func(val []byte) error {
		var err error
		info, err = storage.UnmarshalCollectionInfo(val)
		return err
	})
	return info, err
}

func readPoint(item *badger.Item) (*core.Point, error) {
	var p *core.Point
	err := item.Value(func(val []byte) error {
		var err error
		p, err = storage.UnmarshalPoint(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("point %d: %w", pointIDFromKey(item.Key()), err)
	}
	return p, nil
}
