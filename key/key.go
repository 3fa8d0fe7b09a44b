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

// Package key implements Key: an immutable ordered tuple of 1-256
// byte strings. Keys are the common currency between the
// interned-tuple set, the CHK codecs, and the known-graph / annotation
// engines.
package key

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MaxComponents is the largest number of components a Key may hold.
const MaxComponents = 256

// Key is an immutable ordered tuple of byte-string components. The
// zero value is not a valid Key; use New.
type Key struct {
	parts [][]byte
	hash  uint64
	valid bool
}

// New builds a Key from parts, which are copied so the Key is immune
// to later mutation of the caller's slices. len(parts) must be in
// [1, MaxComponents].
func New(parts ...[]byte) Key {
	if len(parts) < 1 || len(parts) > MaxComponents {
		panic(fmt.Sprintf("key: invalid component count %d", len(parts)))
	}
	owned := make([][]byte, len(parts))
	h := xxhash.New()
	for i, p := range parts {
		cp := make([]byte, len(p))
		copy(cp, p)
		owned[i] = cp
		_, _ = h.Write(cp)
		_, _ = h.Write([]byte{0})
	}
	return Key{parts: owned, hash: h.Sum64(), valid: true}
}

// NewRevisionKey builds the 1-tuple (revision_id,) shape.
func NewRevisionKey(revisionID []byte) Key {
	return New(revisionID)
}

// NewFileRevisionKey builds the 2-tuple (file_id, revision_id) shape.
func NewFileRevisionKey(fileID, revisionID []byte) Key {
	return New(fileID, revisionID)
}

// Len returns the number of components.
func (k Key) Len() int { return len(k.parts) }

// Part returns the i'th component. The returned slice must not be
// mutated by the caller.
func (k Key) Part(i int) []byte { return k.parts[i] }

// Valid reports whether k was built through New (as opposed to being
// a zero value).
func (k Key) Valid() bool { return k.valid }

// Equal reports whether k and other have the same length and equal
// components in order.
func (k Key) Equal(other Key) bool {
	if len(k.parts) != len(other.parts) {
		return false
	}
	for i := range k.parts {
		if !bytes.Equal(k.parts[i], other.parts[i]) {
			return false
		}
	}
	return true
}

// Hash returns a hash of k's components that agrees on equal Keys; it
// is used by package intern as the probe-table hash.
func (k Key) Hash() uint64 { return k.hash }

// Compare orders keys lexicographically by component; when one key is
// a prefix of the other, the shorter key sorts first. It gives a total
// order suitable for sorting annotation tuples.
func (k Key) Compare(other Key) int {
	n := len(k.parts)
	if len(other.parts) < n {
		n = len(other.parts)
	}
	for i := 0; i < n; i++ {
		if c := bytes.Compare(k.parts[i], other.parts[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k.parts) < len(other.parts):
		return -1
	case len(k.parts) > len(other.parts):
		return 1
	default:
		return 0
	}
}

// String renders a human-readable, non-canonical form for logging and
// error messages only.
func (k Key) String() string {
	parts := make([]string, len(k.parts))
	for i, p := range k.parts {
		parts[i] = fmt.Sprintf("%q", p)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
