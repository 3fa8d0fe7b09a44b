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

// Package graph implements Component E: a known-graph engine over a
// fixed parent map, computing greatest-distance-from-origin, a
// topological order, merge-sort revno numbering, and cached heads
// queries.
package graph

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/arbornet/revcore/errs"
	"github.com/arbornet/revcore/key"
)

// NullRevision is the distinguished key denoting the absence of any
// revision, special-cased by Heads.
var NullRevision = key.New([]byte("null:"))

// node is addressed only by its index into Graph.arena: every edge is
// stored as an index, not a pointer, so the graph can be built and
// torn down without participating in Go's cycle collector concerns.
type node struct {
	key         key.Key
	parents     []int // indices into arena; -1 marks a ghost slot
	realParents int    // count of parents entries resolved to a real node
	children    []int
	gdfo        int
}

// Graph is a known-graph engine built once from a fixed parent map
// and then queried. Construction order does not matter; Heads results
// are cached internally and invalidated only by rebuilding the graph.
type Graph struct {
	arena    []node
	index    map[uint64][]int // key.Hash() -> candidate arena indices (collision-chained)
	headsLRU *lru.Cache[string, []key.Key]
	logger   *zap.Logger
}

// Options configures graph construction.
type Options struct {
	// HeadsCacheSize bounds the LRU cache of Heads results. Zero
	// disables caching.
	HeadsCacheSize int
	Logger         *zap.Logger
}

// ParentEdge is one row of the parent map a Graph is built from: Key
// with its ordered, possibly-empty tuple of Parents.
type ParentEdge struct {
	Key     key.Key
	Parents []key.Key
}

// New builds a Graph from parentMap: one ParentEdge per known key.
// Parent keys with no corresponding entry in parentMap are ghosts:
// they are preserved as holes (no node, no children) rather than
// synthesized into nodes.
func New(parentMap []ParentEdge, opts Options) *Graph {
	g := &Graph{
		index:  make(map[uint64][]int, len(parentMap)),
		logger: opts.Logger,
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if opts.HeadsCacheSize > 0 {
		c, err := lru.New[string, []key.Key](opts.HeadsCacheSize)
		if err == nil {
			g.headsLRU = c
		}
	}

	g.arena = make([]node, 0, len(parentMap))
	idxOf := make(map[string]int, len(parentMap))
	for _, e := range parentMap {
		ks := e.Key.String()
		idxOf[ks] = len(g.arena)
		g.arena = append(g.arena, node{key: e.Key})
		g.index[e.Key.Hash()] = append(g.index[e.Key.Hash()], idxOf[ks])
	}

	for _, e := range parentMap {
		ci := idxOf[e.Key.String()]
		pIdx := make([]int, len(e.Parents))
		for i, p := range e.Parents {
			pi, ok := idxOf[p.String()]
			if !ok {
				pIdx[i] = -1
				continue
			}
			pIdx[i] = pi
			g.arena[pi].children = append(g.arena[pi].children, ci)
			g.arena[ci].realParents++
		}
		g.arena[ci].parents = pIdx
	}

	g.computeGdfo()
	g.logger.Debug("known graph constructed", zap.Int("nodes", len(g.arena)))
	return g
}

func (g *Graph) findIndex(k key.Key) (int, bool) {
	for _, i := range g.index[k.Hash()] {
		if g.arena[i].key.Equal(k) {
			return i, true
		}
	}
	return 0, false
}

// tails returns every node with no resolvable parent: either it was
// declared with an empty parent tuple, or every parent it names is a
// ghost.
func (g *Graph) tails() []int {
	var out []int
	for i, n := range g.arena {
		if n.realParents == 0 {
			out = append(out, i)
		}
	}
	return out
}

// computeGdfo walks the graph forward from its tails with a LIFO
// stack: tails start at gdfo 1; a child is only enqueued once every
// real parent edge into it has been walked, tracked with a per-node
// seen-count reset whenever the node is (re)enqueued.
func (g *Graph) computeGdfo() {
	seen := make([]int, len(g.arena))
	stack := g.tails()
	for _, i := range stack {
		g.arena[i].gdfo = 1
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ci := range g.arena[i].children {
			if g.arena[ci].gdfo < g.arena[i].gdfo+1 {
				g.arena[ci].gdfo = g.arena[i].gdfo + 1
			}
			seen[ci]++
			if seen[ci] == g.arena[ci].realParents {
				seen[ci] = 0
				stack = append(stack, ci)
			}
		}
	}
}

// TopoSort returns every key in the graph in an order where each
// parent precedes its children. Ghost parents are skipped; they
// never appear as nodes. A graph that cannot be fully drained (no
// tails reachable from some subset of nodes) is a cycle and raises
// errs.GraphCycleError carrying the residual keys.
func (g *Graph) TopoSort() ([]key.Key, error) {
	seen := make([]int, len(g.arena))
	stack := g.tails()
	visited := make([]bool, len(g.arena))
	var order []key.Key

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true
		order = append(order, g.arena[i].key)
		for _, ci := range g.arena[i].children {
			seen[ci]++
			if seen[ci] == g.arena[ci].realParents {
				seen[ci] = 0
				stack = append(stack, ci)
			}
		}
	}

	if len(order) != len(g.arena) {
		var residual []fmt.Stringer
		for i, v := range visited {
			if !v {
				residual = append(residual, g.arena[i].key)
			}
		}
		return nil, errs.NewGraphCycleError(residual)
	}
	return order, nil
}

// Heads returns the subset of candidates that is not reachable from
// any other candidate. NullRevision is a head only when it is the
// sole candidate. Results are cached on the Graph when a heads cache
// was configured.
func (g *Graph) Heads(candidates []key.Key) []key.Key {
	filtered := make([]key.Key, 0, len(candidates))
	sawNull := false
	for _, c := range candidates {
		if c.Equal(NullRevision) {
			sawNull = true
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		if sawNull {
			return []key.Key{NullRevision}
		}
		return nil
	}
	if len(filtered) < 2 {
		return filtered
	}

	cacheKey := cacheKeyFor(filtered)
	if g.headsLRU != nil {
		if cached, ok := g.headsLRU.Get(cacheKey); ok {
			return cached
		}
	}

	candIdx := make([]int, 0, len(filtered))
	minGdfo := -1
	for _, c := range filtered {
		i, ok := g.findIndex(c)
		if !ok {
			continue
		}
		candIdx = append(candIdx, i)
		if minGdfo < 0 || g.arena[i].gdfo < minGdfo {
			minGdfo = g.arena[i].gdfo
		}
	}

	seenFlag := make([]bool, len(g.arena))
	var stack []int
	for _, i := range candIdx {
		for _, p := range g.arena[i].parents {
			if p >= 0 {
				stack = append(stack, p)
			}
		}
	}
	marked := make(map[int]bool)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seenFlag[i] {
			continue
		}
		seenFlag[i] = true
		marked[i] = true
		if g.arena[i].gdfo <= minGdfo {
			continue
		}
		for _, p := range g.arena[i].parents {
			if p >= 0 && !seenFlag[p] {
				stack = append(stack, p)
			}
		}
	}

	var heads []key.Key
	for _, c := range filtered {
		i, ok := g.findIndex(c)
		if !ok || !marked[i] {
			heads = append(heads, c)
		}
	}

	if g.headsLRU != nil {
		g.headsLRU.Add(cacheKey, heads)
	}
	return heads
}

func cacheKeyFor(keys []key.Key) string {
	ordered := make([]key.Key, len(keys))
	copy(ordered, keys)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].Compare(ordered[j]) > 0; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	s := ""
	for _, k := range ordered {
		s += k.String() + "\x00"
	}
	return s
}

// Ancestors returns every node reachable by following parent edges
// from key (exclusive of ghosts), in no particular order. Supplements
// the known-graph query surface alongside TopoSort and Heads.
func (g *Graph) Ancestors(k key.Key) []key.Key {
	start, ok := g.findIndex(k)
	if !ok {
		return nil
	}
	seen := map[int]bool{start: true}
	stack := []int{start}
	var out []key.Key
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.arena[i].parents {
			if p < 0 || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, g.arena[p].key)
			stack = append(stack, p)
		}
	}
	return out
}

// Tails returns every node in the graph with no parent that resolves
// to a node: a node whose only parents are ghosts counts as a tail.
func (g *Graph) Tails() []key.Key {
	out := make([]key.Key, 0)
	for _, i := range g.tails() {
		out = append(out, g.arena[i].key)
	}
	return out
}

// Gdfo returns k's greatest-distance-from-origin, or 0 if k is not a
// node in the graph.
func (g *Graph) Gdfo(k key.Key) int {
	i, ok := g.findIndex(k)
	if !ok {
		return 0
	}
	return g.arena[i].gdfo
}
