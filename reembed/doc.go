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

// Package reembed rewrites the vectors of an existing collection with the
// current embedding model.
//
// Points are scrolled in ID order, their stored text is embedded in
// batches with retry and exponential backoff, vectors are normalized for
// cosine search, and the points are upserted back in place. Payloads and
// IDs never change. When a checkpoint store is supplied, progress is
// recorded after every batch so an interrupted run resumes where it left off.
package reembed
