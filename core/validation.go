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

import (
	"fmt"
	"strings"
)

// ValidateTarget validates that a CollectionTarget has a known value.
func ValidateTarget(target CollectionTarget) error {
	if _, ok := targetNames[target]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidTarget, target)
	}
	return nil
}

// ValidateEntity validates an ExtractedEntity according to domain rules.
//
// Validation rules:
//   - Name must not be blank
//   - Confidence must be within [0,1]
//   - SourceDocument must be set
//
// NOT validated:
//   - Category (models leave it empty often enough that it is optional)
//   - Canonical (derived from routing when stored)
func ValidateEntity(entity *ExtractedEntity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if strings.TrimSpace(entity.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if entity.Confidence < 0 || entity.Confidence > 1 {
		return fmt.Errorf("%w: %w: %v", ErrInvalidEntity, ErrConfidenceRange, entity.Confidence)
	}

	if entity.SourceDocument == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyDocumentID)
	}

	return nil
}

// ValidatePoint validates a Point before it is written to a store.
func ValidatePoint(point *Point) error {
	if point == nil {
		return fmt.Errorf("%w: point is nil", ErrInvalidPoint)
	}

	if point.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrEmptyDocumentID)
	}

	if len(point.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrEmptyVector)
	}

	return nil
}
