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

// Package chk implements the two search-key hash functions used as a
// CHK map's trie probe keys, and the parsers and serializers for CHK
// leaf and internal node blobs.
package chk

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/arbornet/revcore/key"
)

// SearchKeyFunc hashes a key tuple into a probe string used inside a
// CHK map. Exposing both schemes as values of one type, rather than
// hard-wiring which is used by name, lets a CHK map be parameterized
// on its search-key scheme per instance.
type SearchKeyFunc func(k key.Key) []byte

// crcOf is H(k): CRC-32 with the IEEE 802.3 polynomial and a zero
// initial register.
func crcOf(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// SearchKey16 implements search_key_16: each component's CRC-32,
// rendered as 8 uppercase hex bytes, joined by NUL. Output length is
// 9*k.Len() - 1.
func SearchKey16(k key.Key) []byte {
	n := k.Len()
	out := make([]byte, 0, 9*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, fmt.Sprintf("%08X", crcOf(k.Part(i)))...)
	}
	return out
}

// SearchKey255 implements search_key_255: the four most-significant
// bytes of each component's CRC-32, joined by NUL, with any '\n' byte
// within a hash replaced by '_' so the search key survives
// line-oriented storage. Output length is 5*k.Len() - 1.
func SearchKey255(k key.Key) []byte {
	n := k.Len()
	out := make([]byte, 0, 5*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, 0)
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], crcOf(k.Part(i)))
		for _, c := range b {
			if c == '\n' {
				c = '_'
			}
			out = append(out, c)
		}
	}
	return out
}
