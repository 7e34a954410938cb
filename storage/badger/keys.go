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
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/poiesic/lorevault/core"
)

const (
	collectionPrefix = "col"
	pointPrefix      = "pt"
	checkpointPrefix = "chkpt"

	// documentPrefixLen is how many leading bytes of a point ID identify its
	// document. The low three bytes hold the chunk index.
	documentPrefixLen = 5
)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// validCollectionName keeps names free of the key separator.
func validCollectionName(name string) bool {
	return collectionNamePattern.MatchString(name)
}

// makeCollectionKey generates a key for collection metadata.
func makeCollectionKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionPrefix, name))
}

// makePointPrefix generates the prefix shared by all points of a collection.
// Format: pt:collection:
func makePointPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", pointPrefix, collection))
}

// makePointKey generates a key for a point.
// Format: pt:collection:id, with the ID in BigEndian so keys sort by ID.
func makePointKey(collection string, id core.ID) []byte {
	prefix := makePointPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeDocumentPrefix generates the key prefix shared by every point of a document.
func makeDocumentPrefix(collection, documentID string) []byte {
	key := makePointKey(collection, core.DocumentBase(documentID))
	return key[:len(key)-8+documentPrefixLen]
}

// pointIDFromKey recovers the ID from a point key.
func pointIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// makeCheckpointKey generates a key for a named checkpoint.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, name))
}
