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
	"encoding/json"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the records persisted by the embedded store.
// Payloads are free-form so they travel as a JSON string inside the MUS frame.
var (
	IDMUS             = idMUS{}
	PointMUS          = pointMUS{}
	CollectionInfoMUS = collectionInfoMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

type vectorMUS struct{}

func (s vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (s vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs) {
		return nil, n, ErrCorruptRecord
	}
	v = make([]float32, length)
	for i := range v {
		var n1 int
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (s vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

type pointMUS struct{}

func encodePayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s pointMUS) Marshal(v Point, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.DocumentID, bs[n:])
	n += vectorMUS{}.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(encodePayload(v.Payload), bs[n:])
	return n
}

func (s pointMUS) Unmarshal(bs []byte) (v Point, n int, err error) {
	var n1 int
	v.ID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.DocumentID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS{}.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var payload string
	payload, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if payload != "" {
		if err = json.Unmarshal([]byte(payload), &v.Payload); err != nil {
			return
		}
	}
	return
}

func (s pointMUS) Size(v Point) (size int) {
	size = IDMUS.Size(v.ID)
	size += ord.String.Size(v.DocumentID)
	size += vectorMUS{}.Size(v.Vector)
	size += ord.String.Size(encodePayload(v.Payload))
	return size
}

type collectionInfoMUS struct{}

func (s collectionInfoMUS) Marshal(v CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	return n
}

func (s collectionInfoMUS) Unmarshal(bs []byte) (v CollectionInfo, n int, err error) {
	var n1 int
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s collectionInfoMUS) Size(v CollectionInfo) (size int) {
	return ord.String.Size(v.Name) + varint.Int.Size(v.Dimension)
}
