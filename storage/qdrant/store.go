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


package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/storage"
)

// Store implements storage.VectorStore over the Qdrant REST API.
type Store struct {
	client *client
	logger *slog.Logger

	mu   sync.RWMutex
	dims map[string]int
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithAPIKey sets the key sent in the api-key header.
func WithAPIKey(key string) Option {
	return func(s *Store) error {
		s.client.apiKey = key
		return nil
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		s.client.http = hc
		return nil
	}
}

// NewStore creates a store talking to the Qdrant server at url,
// e.g. "http://localhost:6333".
//
// Returns storage.VectorStore interface to enforce abstraction.
func NewStore(url string, opts ...Option) (storage.VectorStore, error) {
	return newStore(url, opts...)
}

func newStore(url string, opts ...Option) (*Store, error) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return nil, errors.New("qdrant url cannot be empty")
	}
	s := &Store{
		client: &client{
			baseURL: url,
			http:    &http.Client{Timeout: defaultTimeout},
		},
		logger: slog.Default().With("component", "qdrant-store"),
		dims:   make(map[string]int),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.doRequest(ctx, http.MethodGet, "/", nil)
	return err
}

type collectionResult struct {
	Status      string `json:"status"`
	PointsCount *int   `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// CollectionInfo fetches collection metadata.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error) {
	data, err := s.client.doRequest(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
		}
		return nil, err
	}
	var result collectionResult
	if err := decodeResult(data, &result); err != nil {
		return nil, err
	}

	info := &core.CollectionInfo{
		Name:      name,
		Dimension: result.Config.Params.Vectors.Size,
		Status:    result.Status,
	}
	if result.PointsCount != nil {
		info.PointsCount = *result.PointsCount
	}
	s.rememberDim(name, info.Dimension)
	return info, nil
}

// EnsureCollection creates the collection with cosine distance and a keyword
// index on the document ID payload field.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("%w: collection %q dimension %d", storage.ErrInvalidQuery, name, dimension)
	}

	info, err := s.CollectionInfo(ctx, name)
	if err == nil {
		if info.Dimension != dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, want %d",
				storage.ErrDimensionMismatch, name, info.Dimension, dimension)
		}
		return nil
	}
	if !errors.Is(err, storage.ErrCollectionNotFound) {
		return err
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if _, err := s.client.doRequest(ctx, http.MethodPut, "/collections/"+name, req); err != nil {
		return err
	}
	index := map[string]any{
		"field_name":   core.PayloadDocumentID,
		"field_schema": "keyword",
	}
	if _, err := s.client.doRequest(ctx, http.MethodPut, "/collections/"+name+"/index?wait=true", index); err != nil {
		return err
	}
	s.rememberDim(name, dimension)
	s.logger.Info("created collection", "name", name, "dimension", dimension)
	return nil
}

// Upsert writes points, waiting for the server to apply them.
func (s *Store) Upsert(ctx context.Context, collection string, points ...*core.Point) error {
	if len(points) == 0 {
		return nil
	}
	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return err
	}

	payload := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if err := core.ValidatePoint(p); err != nil {
			return err
		}
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %d has %d values, collection %s wants %d",
				storage.ErrDimensionMismatch, p.ID, len(p.Vector), collection, dim)
		}
		body := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			body[k] = v
		}
		body[core.PayloadDocumentID] = p.DocumentID
		payload = append(payload, map[string]any{
			"id":      uint64(p.ID),
			"vector":  p.Vector,
			"payload": body,
		})
	}
	req := map[string]any{"points": payload}
	_, err = s.client.doRequest(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", req)
	return s.collectionErr(collection, err)
}

// ExistsByDocument counts points matching the document filter.
func (s *Store) ExistsByDocument(ctx context.Context, collection, documentID string) (bool, error) {
	req := map[string]any{
		"filter": documentFilter(documentID),
		"exact":  true,
	}
	data, err := s.client.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/count", req)
	if err != nil {
		return false, s.collectionErr(collection, err)
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := decodeResult(data, &result); err != nil {
		return false, err
	}
	return result.Count > 0, nil
}

type scrolledPoint struct {
	ID      pointID        `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
	Score   float32        `json:"score"`
}

func (p scrolledPoint) point() *core.Point {
	documentID, _ := p.Payload[core.PayloadDocumentID].(string)
	return &core.Point{
		ID:         core.ID(p.ID),
		DocumentID: documentID,
		Vector:     p.Vector,
		Payload:    p.Payload,
	}
}

func (s *Store) scroll(ctx context.Context, collection string, filter map[string]any, offset *core.ID, limit int) ([]*core.Point, *core.ID, error) {
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if filter != nil {
		req["filter"] = filter
	}
	if offset != nil {
		req["offset"] = uint64(*offset)
	}
	data, err := s.client.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", req)
	if err != nil {
		return nil, nil, s.collectionErr(collection, err)
	}
	var result struct {
		Points         []scrolledPoint `json:"points"`
		NextPageOffset *pointID        `json:"next_page_offset"`
	}
	if err := decodeResult(data, &result); err != nil {
		return nil, nil, err
	}

	points := make([]*core.Point, len(result.Points))
	for i, p := range result.Points {
		points[i] = p.point()
	}
	var next *core.ID
	if result.NextPageOffset != nil {
		id := core.ID(*result.NextPageOffset)
		next = &id
	}
	return points, next, nil
}

// ScrollByDocument pages through the document filter until exhausted.
func (s *Store) ScrollByDocument(ctx context.Context, collection, documentID string) ([]*core.Point, error) {
	var all []*core.Point
	var offset *core.ID
	for {
		points, next, err := s.scroll(ctx, collection, documentFilter(documentID), offset, 256)
		if err != nil {
			return nil, err
		}
		all = append(all, points...)
		if next == nil {
			return all, nil
		}
		offset = next
	}
}

// Scroll pages through the whole collection in ID order.
func (s *Store) Scroll(ctx context.Context, collection string, offset *core.ID, limit int) ([]*core.Point, *core.ID, error) {
	if limit <= 0 {
		return nil, nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	return s.scroll(ctx, collection, nil, offset, limit)
}

// DeleteByDocument counts the document's points, then deletes them by filter.
func (s *Store) DeleteByDocument(ctx context.Context, collection, documentID string) (int, error) {
	countReq := map[string]any{
		"filter": documentFilter(documentID),
		"exact":  true,
	}
	data, err := s.client.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/count", countReq)
	if err != nil {
		return 0, s.collectionErr(collection, err)
	}
	var result struct {
		Count int `json:"count"`
	}
	if err := decodeResult(data, &result); err != nil {
		return 0, err
	}
	if result.Count == 0 {
		return 0, nil
	}

	req := map[string]any{"filter": documentFilter(documentID)}
	if _, err := s.client.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", req); err != nil {
		return 0, s.collectionErr(collection, err)
	}
	return result.Count, nil
}

// Search runs a cosine similarity query on the server.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, minScore float32) ([]*core.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": minScore,
	}
	data, err := s.client.doRequest(ctx, http.MethodPost, "/collections/"+collection+"/points/search", req)
	if err != nil {
		return nil, s.collectionErr(collection, err)
	}
	var result []scrolledPoint
	if err := decodeResult(data, &result); err != nil {
		return nil, err
	}

	scored := make([]*core.ScoredPoint, len(result))
	for i, p := range result {
		scored[i] = &core.ScoredPoint{Point: p.point(), Score: p.Score}
	}
	return scored, nil
}

// Close drops idle connections.
func (s *Store) Close() error {
	s.client.http.CloseIdleConnections()
	return nil
}

func (s *Store) rememberDim(collection string, dim int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dims[collection] = dim
}

func (s *Store) dimension(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	dim, ok := s.dims[collection]
	s.mu.RUnlock()
	if ok {
		return dim, nil
	}
	info, err := s.CollectionInfo(ctx, collection)
	if err != nil {
		return 0, err
	}
	return info.Dimension, nil
}

func (s *Store) collectionErr(collection string, err error) error {
	if err != nil && isNotFound(err) {
		return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}
	return err
}

func documentFilter(documentID string) map[string]any {
	return mustFilter(matchFilter(core.PayloadDocumentID, documentID))
}
