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

package annotate

import (
	"strings"

	"github.com/arbornet/revcore/key"
)

// Annotation is the sorted, deduplicated tuple of revision ids that
// independently introduced one line. The sorted invariant is what
// lets two annotations merge in linear time.
type Annotation []key.Key

// single builds the one-revision sentinel annotation a freshly
// visited line starts with.
func single(r key.Key) Annotation { return Annotation{r} }

// compare gives Annotation a total order (by length, then
// element-wise) so merge results can be cached on an
// order-independent key: compare(a, b) == -compare(b, a).
func (a Annotation) compare(b Annotation) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (a Annotation) cacheToken() string {
	var sb strings.Builder
	for _, k := range a {
		sb.WriteString(k.String())
		sb.WriteByte(0)
	}
	return sb.String()
}

// isSentinelFor reports whether a is exactly the freshly-minted
// single-revision annotation for r, i.e. not yet touched by any
// earlier parent.
func (a Annotation) isSentinelFor(r key.Key) bool {
	return len(a) == 1 && a[0].Equal(r)
}

// mergeCache memoizes sortedMerge results keyed on the normalized
// (ordered) pair of inputs, so merge(a, b) and merge(b, a) share one
// cache entry.
type mergeCache struct {
	entries map[string]Annotation
}

func newMergeCache() *mergeCache {
	return &mergeCache{entries: make(map[string]Annotation)}
}

func (c *mergeCache) merge(a, b Annotation) Annotation {
	lo, hi := a, b
	if lo.compare(hi) > 0 {
		lo, hi = hi, lo
	}
	token := lo.cacheToken() + "\x01" + hi.cacheToken()
	if m, ok := c.entries[token]; ok {
		return m
	}
	m := sortedMerge(lo, hi)
	c.entries[token] = m
	return m
}

// sortedMerge is the classical two-pointer merge of two sorted,
// already-deduplicated tuples into one sorted, deduplicated tuple,
// consuming equal elements once.
func sortedMerge(a, b Annotation) Annotation {
	out := make(Annotation, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := a[i].Compare(b[j]); {
		case c < 0:
			out = append(out, a[i])
			i++
		case c > 0:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
