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

// Package routing decides which content collection a document belongs to.
//
// Routing looks at the document name only. Names containing "adventure"
// anywhere, in any case, go to adventure path content; everything else
// is rulebook content. Entities are never routed here: they always land in
// the entity store.
package routing

import (
	"path"
	"strings"

	"github.com/poiesic/lorevault/core"
)

// AdventureMarker is the substring that flags campaign-specific content.
const AdventureMarker = "adventure"

// Route maps a document name or path to its content collection.
// Only the final path element is considered.
func Route(name string) core.CollectionTarget {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, `\`, "/")))
	if strings.Contains(base, AdventureMarker) {
		return core.TargetAdventurePath
	}
	return core.TargetRulebook
}

// ExtractionAllowed reports whether entities may be extracted from content
// routed to target. Campaign characters must never reach the canonical store.
func ExtractionAllowed(target core.CollectionTarget) bool {
	return target != core.TargetAdventurePath
}

// IsCanonical reports whether entities sourced from target are canonical.
func IsCanonical(target core.CollectionTarget) bool {
	return target == core.TargetRulebook
}
