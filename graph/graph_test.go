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

package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbornet/revcore/key"
)

func rev(id string) key.Key { return key.NewRevisionKey([]byte(id)) }

// diamondGraph builds A -> B, A -> C, B -> D, C -> D: the spec's
// canonical diamond DAG.
func diamondGraph(t *testing.T) *Graph {
	t.Helper()
	a, b, c, d := rev("A"), rev("B"), rev("C"), rev("D")
	return New([]ParentEdge{
		{Key: a, Parents: nil},
		{Key: b, Parents: []key.Key{a}},
		{Key: c, Parents: []key.Key{a}},
		{Key: d, Parents: []key.Key{b, c}},
	}, Options{})
}

func sortedStrings(keys []key.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	sort.Strings(out)
	return out
}

func TestGdfoOnDiamond(t *testing.T) {
	g := diamondGraph(t)
	assert.Equal(t, 1, g.Gdfo(rev("A")))
	assert.Equal(t, 2, g.Gdfo(rev("B")))
	assert.Equal(t, 2, g.Gdfo(rev("C")))
	assert.Equal(t, 3, g.Gdfo(rev("D")))
}

func TestTopoSortOnDiamond(t *testing.T) {
	g := diamondGraph(t)
	order, err := g.TopoSort()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, k := range order {
		pos[k.String()] = i
	}
	assert.Less(t, pos[rev("A").String()], pos[rev("B").String()])
	assert.Less(t, pos[rev("A").String()], pos[rev("C").String()])
	assert.Less(t, pos[rev("B").String()], pos[rev("D").String()])
	assert.Less(t, pos[rev("C").String()], pos[rev("D").String()])
}

func TestTopoSortDetectsCycle(t *testing.T) {
	a, b := rev("A"), rev("B")
	g := New([]ParentEdge{
		{Key: a, Parents: []key.Key{b}},
		{Key: b, Parents: []key.Key{a}},
	}, Options{})
	_, err := g.TopoSort()
	require.Error(t, err)
}

func TestHeadsOnDiamond(t *testing.T) {
	g := diamondGraph(t)
	a, b, c, d := rev("A"), rev("B"), rev("C"), rev("D")

	assert.Equal(t, []string{"D"}, sortedStrings(g.Heads([]key.Key{a, b, c, d})))
	assert.Equal(t, []string{"B", "C"}, sortedStrings(g.Heads([]key.Key{b, c})))
	assert.Equal(t, []string{"A"}, sortedStrings(g.Heads([]key.Key{a})))
	assert.Equal(t, []string{"A"}, sortedStrings(g.Heads([]key.Key{NullRevision, a})))
}

func TestHeadsNullRevisionAloneIsAHead(t *testing.T) {
	g := diamondGraph(t)
	heads := g.Heads([]key.Key{NullRevision})
	require.Len(t, heads, 1)
	assert.True(t, heads[0].Equal(NullRevision))
}

func TestHeadsGhostParentsAreIgnored(t *testing.T) {
	a := rev("A")
	ghost := rev("ghost")
	g := New([]ParentEdge{
		{Key: a, Parents: []key.Key{ghost}},
	}, Options{})
	assert.Equal(t, []string{"A"}, sortedStrings(g.Heads([]key.Key{a})))
}

func TestHeadsCaching(t *testing.T) {
	a, b, c, d := rev("A"), rev("B"), rev("C"), rev("D")
	g := New([]ParentEdge{
		{Key: a, Parents: nil},
		{Key: b, Parents: []key.Key{a}},
		{Key: c, Parents: []key.Key{a}},
		{Key: d, Parents: []key.Key{b, c}},
	}, Options{HeadsCacheSize: 32})

	first := g.Heads([]key.Key{b, c})
	second := g.Heads([]key.Key{c, b})
	assert.ElementsMatch(t, sortedStrings(first), sortedStrings(second))
}

func TestAncestors(t *testing.T) {
	g := diamondGraph(t)
	anc := sortedStrings(g.Ancestors(rev("D")))
	assert.Equal(t, []string{"A", "B", "C"}, anc)
}

func TestTails(t *testing.T) {
	g := diamondGraph(t)
	tails := sortedStrings(g.Tails())
	assert.Equal(t, []string{"A"}, tails)
}

func TestMergeSortMainlineIsSingleElementIncreasing(t *testing.T) {
	a, b, c := rev("A"), rev("B"), rev("C")
	g := New([]ParentEdge{
		{Key: a, Parents: nil},
		{Key: b, Parents: []key.Key{a}},
		{Key: c, Parents: []key.Key{b}},
	}, Options{})

	entries, err := g.MergeSort(c)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byRev := make(map[string]MergeSortEntry, len(entries))
	for _, e := range entries {
		byRev[e.RevisionID.String()] = e
	}
	assert.Equal(t, []int{3}, byRev["C"].Revno)
	assert.Equal(t, []int{2}, byRev["B"].Revno)
	assert.Equal(t, []int{1}, byRev["A"].Revno)
	assert.True(t, byRev["A"].EndOfMerge == false)
}

func TestMergeSortOnDiamondAssignsBranchTuple(t *testing.T) {
	g := diamondGraph(t)
	entries, err := g.MergeSort(rev("D"))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byRev := make(map[string]MergeSortEntry, len(entries))
	seqs := make(map[string]int, len(entries))
	for _, e := range entries {
		byRev[e.RevisionID.String()] = e
		seqs[e.RevisionID.String()] = e.SequenceNumber
	}

	assert.Len(t, byRev["D"].Revno, 1)
	assert.Len(t, byRev["B"].Revno, 1)
	assert.Len(t, byRev["C"].Revno, 3)
	assert.Len(t, byRev["A"].Revno, 1)
	assert.True(t, byRev["C"].EndOfMerge)

	assert.Less(t, seqs["D"], seqs["B"])
	assert.Less(t, seqs["D"], seqs["C"])
}

func TestMergeSortUnknownTipFails(t *testing.T) {
	g := diamondGraph(t)
	_, err := g.MergeSort(rev("missing"))
	require.Error(t, err)
}
