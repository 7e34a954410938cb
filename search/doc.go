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

// Package search runs semantic queries against the imported collections.
//
// A query is embedded once and compared with every requested collection.
// Hits are ranked by cosine similarity, with a small boost when the stored
// text contains every meaningful word of the query verbatim. The CLI uses
// it to spot-check an import.
package search
