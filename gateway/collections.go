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


// Package gateway embeds content and writes it to the vector store.
//
// The gateway owns collection naming: given a prefix, chunks land in
// <prefix>_rulebooks or <prefix>_adventurepaths and entities in
// <prefix>_npcs. It also answers the duplicate check used for skip-existing
// imports and carries the maintenance operations (stats, document deletion,
// adventure content cleanup).
package gateway

import (
	"fmt"

	"github.com/poiesic/lorevault/core"
)

// DefaultPrefix is the collection name prefix used when none is configured.
const DefaultPrefix = "game"

// Collections maps collection targets to store collection names.
type Collections struct {
	Rulebook      string
	AdventurePath string
	Entity        string
}

// CollectionsFor derives collection names from prefix.
func CollectionsFor(prefix string) Collections {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Collections{
		Rulebook:      prefix + "_rulebooks",
		AdventurePath: prefix + "_adventurepaths",
		Entity:        prefix + "_npcs",
	}
}

// Name returns the collection name for target.
func (c Collections) Name(target core.CollectionTarget) (string, error) {
	switch target {
	case core.TargetRulebook:
		return c.Rulebook, nil
	case core.TargetAdventurePath:
		return c.AdventurePath, nil
	case core.TargetEntity:
		return c.Entity, nil
	default:
		return "", fmt.Errorf("%w: value %d", core.ErrInvalidTarget, target)
	}
}

// Target maps a collection name back to its target.
func (c Collections) Target(name string) (core.CollectionTarget, bool) {
	switch name {
	case c.Rulebook:
		return core.TargetRulebook, true
	case c.AdventurePath:
		return core.TargetAdventurePath, true
	case c.Entity:
		return core.TargetEntity, true
	default:
		return 0, false
	}
}

// contentType is the payload label for points in target's collection.
func contentType(target core.CollectionTarget) string {
	switch target {
	case core.TargetRulebook:
		return "rulebook"
	case core.TargetAdventurePath:
		return "adventure_path"
	case core.TargetEntity:
		return "npc"
	default:
		return "general"
	}
}
