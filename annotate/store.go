// Copyright 2024 Arbornet, Inc.
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

// Package annotate implements Component F: per-line revision
// provenance (blame) over a caller-supplied versioned-file store.
package annotate

import "github.com/arbornet/revcore/key"

// AncestryEntry pairs a key with its ordered parent tuple, or a nil
// Parents to mean the key's parentage is unknown (a ghost boundary).
type AncestryEntry struct {
	Key     key.Key
	Parents []key.Key
}

// Record is one revision's full text, exposed as a chunk stream so a
// store can hand back content incrementally.
type Record interface {
	Key() key.Key
	Chunks() ([][]byte, error)
}

// VersionedFileStore is the object the annotator consumes: ancestry
// discovery and a full-text record stream. Both methods are
// synchronous; the core performs no I/O itself.
type VersionedFileStore interface {
	IterAncestry(keys []key.Key) ([]AncestryEntry, error)
	GetRecordStream(keys []key.Key, ordering string, includeFullText bool) ([]Record, error)
}

// BytesRecord is a Record backed by an in-memory byte slice, useful
// for tests and for stores that already hold full texts in memory.
type BytesRecord struct {
	K     key.Key
	Bytes []byte
}

func (r BytesRecord) Key() key.Key { return r.K }

func (r BytesRecord) Chunks() ([][]byte, error) {
	return [][]byte{r.Bytes}, nil
}

// splitLines splits data into lines, each retaining its trailing '\n'
// except possibly the last (e.g. "x\n").
func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var lines [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

func joinChunks(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
