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
	"github.com/arbornet/revcore/errs"
	"github.com/arbornet/revcore/key"
)

// MergeSortEntry is one row of a line-of-history merge-sort numbering:
// (sequence_number, revno_tuple, end_of_merge_flag, revision_id).
type MergeSortEntry struct {
	SequenceNumber int
	Revno          []int
	EndOfMerge     bool
	RevisionID     key.Key
}

type chainTask struct {
	k        key.Key
	revno    []int
	anchor   int
	isBranch bool
}

// MergeSort yields tip's line-of-history numbering: mainline revisions
// (reached by always following a revision's first parent) get a
// single-element revno tuple counting up from the root; a revision
// reached only by following a later parent starts a new merged branch
// with a 3-element tuple (mainline_revno_at_merge, branch_number,
// position_in_branch), position counting up from 1 at the merge
// point. Delegates the underlying walk order to the same
// arena-of-indices structure TopoSort and computeGdfo use.
func (g *Graph) MergeSort(tip key.Key) ([]MergeSortEntry, error) {
	if _, ok := g.findIndex(tip); !ok {
		return nil, errs.NewRevisionNotPresentError(tip)
	}

	ancestorSet := make(map[string]bool)
	for _, a := range g.Ancestors(tip) {
		ancestorSet[a.String()] = true
	}
	ancestorSet[tip.String()] = true

	var mainline []key.Key
	cur := tip
	for {
		mainline = append(mainline, cur)
		i, _ := g.findIndex(cur)
		next, ok := g.firstRealParent(i)
		if !ok {
			break
		}
		cur = next
	}
	mainlineRevno := make(map[string]int, len(mainline))
	for i, k := range mainline {
		mainlineRevno[k.String()] = len(mainline) - i
	}

	visited := make(map[string]bool)
	var entries []MergeSortEntry
	seq := 0
	branchCounter := 0

	stack := []chainTask{{k: tip, revno: []int{mainlineRevno[tip.String()]}, anchor: mainlineRevno[tip.String()], isBranch: false}}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ks := task.k.String()
		if visited[ks] {
			continue
		}
		visited[ks] = true

		i, _ := g.findIndex(task.k)
		realParents := g.realParentKeys(i, ancestorSet)

		entryIdx := len(entries)
		entries = append(entries, MergeSortEntry{
			SequenceNumber: seq,
			Revno:          task.revno,
			RevisionID:     task.k,
		})
		seq++

		if len(realParents) == 0 {
			entries[entryIdx].EndOfMerge = task.isBranch
			continue
		}

		first := realParents[0]
		willContinue := !visited[first.String()]
		entries[entryIdx].EndOfMerge = task.isBranch && !willContinue

		for _, p := range realParents[1:] {
			if visited[p.String()] {
				continue
			}
			branchCounter++
			stack = append(stack, chainTask{
				k:        p,
				revno:    []int{task.anchor, branchCounter, 1},
				anchor:   task.anchor,
				isBranch: true,
			})
		}

		if willContinue {
			var nextRevno []int
			if !task.isBranch {
				nextRevno = []int{mainlineRevno[first.String()]}
			} else {
				nextRevno = []int{task.revno[0], task.revno[1], task.revno[2] + 1}
			}
			stack = append(stack, chainTask{k: first, revno: nextRevno, anchor: task.anchor, isBranch: task.isBranch})
		}
	}

	return entries, nil
}

func (g *Graph) firstRealParent(i int) (key.Key, bool) {
	for _, p := range g.arena[i].parents {
		if p >= 0 {
			return g.arena[p].key, true
		}
	}
	return key.Key{}, false
}

func (g *Graph) realParentKeys(i int, restrict map[string]bool) []key.Key {
	out := make([]key.Key, 0, len(g.arena[i].parents))
	for _, p := range g.arena[i].parents {
		if p < 0 {
			continue
		}
		k := g.arena[p].key
		if restrict != nil && !restrict[k.String()] {
			continue
		}
		out = append(out, k)
	}
	return out
}
