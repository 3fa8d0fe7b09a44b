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

// Package dirstate implements the packed multi-tree dirstate record
// codec and the directory-aware path ordering it is sorted and
// searched under.
package dirstate

import (
	"bytes"
	"sort"
)

// CompareByDirs implements cmp_by_dirs: a directory-wise comparison
// of two byte paths in which '/' sorts strictly less than any other
// byte, so "a" < "a/b" < "a-b" even though lexical byte order would
// place "a-b" between them.
func CompareByDirs(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == '/' {
			return -1
		}
		if cb == '/' {
			return 1
		}
		if ca < cb {
			return -1
		}
		return 1
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// splitDirBasename splits p at its last '/'. A path with no '/' has
// an empty (root) directory.
func splitDirBasename(p []byte) (dir, base []byte) {
	idx := bytes.LastIndexByte(p, '/')
	if idx < 0 {
		return nil, p
	}
	return p[:idx], p[idx+1:]
}

// ComparePathByDirblock implements cmp_path_by_dirblock: split each
// path at its last '/', compare directories with CompareByDirs, and
// on a tie compare basenames with plain byte comparison. This orders
// all siblings of a directory as a contiguous run.
func ComparePathByDirblock(a, b []byte) int {
	da, ba := splitDirBasename(a)
	db, bb := splitDirBasename(b)
	if c := CompareByDirs(da, db); c != 0 {
		return c
	}
	return bytes.Compare(ba, bb)
}

// BisectPathLeft returns the leftmost index in paths (assumed sorted
// by ComparePathByDirblock) at which p could be inserted.
func BisectPathLeft(paths [][]byte, p []byte) int {
	return sort.Search(len(paths), func(i int) bool {
		return ComparePathByDirblock(paths[i], p) >= 0
	})
}

// BisectPathRight returns the rightmost index in paths (assumed
// sorted by ComparePathByDirblock) at which p could be inserted.
func BisectPathRight(paths [][]byte, p []byte) int {
	return sort.Search(len(paths), func(i int) bool {
		return ComparePathByDirblock(paths[i], p) > 0
	})
}

// BisectDirblock returns the leftmost index in blocks (assumed sorted
// by CompareByDirs on Dirname) at which a block named d could be
// inserted.
func BisectDirblock(blocks []Dirblock, d []byte) int {
	return sort.Search(len(blocks), func(i int) bool {
		return CompareByDirs(blocks[i].Dirname, d) >= 0
	})
}

// PathCache memoizes a path's '/'-split components, optionally shared
// across many comparator calls.
type PathCache struct {
	split map[string][][]byte
}

// NewPathCache builds an empty PathCache.
func NewPathCache() *PathCache {
	return &PathCache{split: make(map[string][][]byte)}
}

// Split returns p's '/'-separated components, computing and caching
// them on first use.
func (c *PathCache) Split(p []byte) [][]byte {
	key := string(p)
	if parts, ok := c.split[key]; ok {
		return parts
	}
	parts := bytes.Split(p, []byte{'/'})
	c.split[key] = parts
	return parts
}
