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

// Package bencode implements a strict, deterministic encoder/decoder
// over the BEncode value algebra, byte-for-byte compatible with
// BitTorrent's BEP-3 bencoding.
package bencode

import "sort"

// Value is one decoded BEncode value: an Int, a Bytes string, a List,
// or a Dict. Decode always returns one of these four; Encode accepts
// these plus a handful of convenience Go types (see Encode's doc).
// Opaque also implements Value so pre-encoded bytes can be placed
// inside a List or Dict; Decode never returns an Opaque.
type Value interface {
	isValue()
}

// Int is a decoded BEncode integer.
type Int int64

func (Int) isValue() {}

// Bytes is a decoded BEncode byte string.
type Bytes []byte

func (Bytes) isValue() {}

// List is a decoded BEncode list, order-preserving.
type List []Value

func (List) isValue() {}

// Dict is a decoded BEncode dictionary. Keys are byte strings in
// strictly ascending byte order, per the grammar; Decode enforces
// this on the way in, and Encode enforces it on the way out by
// sorting before emission.
type Dict struct {
	keys   []string
	values map[string]Value
}

func (*Dict) isValue() {}

// NewDict builds an empty Dict.
func NewDict() *Dict {
	return &Dict{values: map[string]Value{}}
}

// Set inserts or replaces the value for key.
func (d *Dict) Set(key string, v Value) {
	if _, exists := d.values[key]; !exists {
		i := sort.SearchStrings(d.keys, key)
		d.keys = append(d.keys, "")
		copy(d.keys[i+1:], d.keys[i:])
		d.keys[i] = key
	}
	d.values[key] = v
}

// Get returns the value for key, if present.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the dict's keys, in the ascending byte order the
// grammar requires.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Opaque is an already-encoded BEncode value whose bytes are spliced
// into the output verbatim by Encode, without re-encoding. Used to
// avoid re-encoding hot values.
type Opaque []byte

func (Opaque) isValue() {}
