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
	"sort"

	"go.uber.org/zap"

	"github.com/arbornet/revcore/errs"
	"github.com/arbornet/revcore/graph"
	"github.com/arbornet/revcore/key"
)

// Options configures an Annotator.
type Options struct {
	// Matcher supplies matching blocks between two line sequences.
	// Defaults to NewDiffMatchPatchMatcher().
	Matcher LineMatcher
	// Progress is consulted once per Annotate call; may be nil.
	Progress ProgressSink
	// Tiebreak resolves AnnotateFlat's multi-head case. Defaults to
	// sorting the candidates and taking the smallest.
	Tiebreak func(Annotation) key.Key
	Logger   *zap.Logger
}

// Annotator implements Component F over a caller-supplied
// VersionedFileStore.
type Annotator struct {
	store    VersionedFileStore
	matcher  LineMatcher
	progress ProgressSink
	tiebreak func(Annotation) key.Key
	logger   *zap.Logger
}

// New builds an Annotator over store.
func New(store VersionedFileStore, opts Options) *Annotator {
	a := &Annotator{
		store:    store,
		matcher:  opts.Matcher,
		progress: opts.Progress,
		tiebreak: opts.Tiebreak,
		logger:   opts.Logger,
	}
	if a.matcher == nil {
		a.matcher = NewDiffMatchPatchMatcher()
	}
	if a.tiebreak == nil {
		a.tiebreak = defaultTiebreak
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

func defaultTiebreak(candidates Annotation) key.Key {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Compare(best) < 0 {
			best = c
		}
	}
	return best
}

// revisionState is the per-ancestor bookkeeping the walk keeps while
// processing ancestry in topological order.
type revisionState struct {
	lines       [][]byte
	annotations []Annotation
	parents     []key.Key
	needed      int // remaining descendants still needing this revision's cached lines/annotations
}

// Annotate returns, for target, the ordered lines of its text and,
// for each line, the sorted deduplicated tuple of revisions that
// independently introduced it.
func (a *Annotator) Annotate(target key.Key) ([]Annotation, [][]byte, error) {
	ancestry, err := a.store.IterAncestry([]key.Key{target})
	if err != nil {
		return nil, nil, err
	}

	edges := make([]graph.ParentEdge, 0, len(ancestry))
	parentsByKey := make(map[string][]key.Key, len(ancestry))
	present := make(map[string]bool, len(ancestry))
	for _, e := range ancestry {
		ks := e.Key.String()
		present[ks] = true
		parentsByKey[ks] = e.Parents
		edges = append(edges, graph.ParentEdge{Key: e.Key, Parents: e.Parents})
	}

	if !present[target.String()] {
		return nil, nil, errs.NewRevisionNotPresentError(target)
	}

	g := graph.New(edges, graph.Options{Logger: a.logger})
	order, err := g.TopoSort()
	if err != nil {
		return nil, nil, err
	}

	// needed counts how many not-yet-processed descendants still
	// require a parent's cached lines/annotations; the target starts
	// at +1 so it survives its own (zero) children.
	needed := make(map[string]int, len(ancestry))
	for _, e := range ancestry {
		for _, p := range e.Parents {
			needed[p.String()]++
		}
	}
	needed[target.String()]++

	records, err := a.store.GetRecordStream(order, "topological", true)
	if err != nil {
		return nil, nil, err
	}
	textByKey := make(map[string][][]byte, len(records))
	for _, rec := range records {
		chunks, err := rec.Chunks()
		if err != nil {
			return nil, nil, err
		}
		textByKey[rec.Key().String()] = splitLines(joinChunks(chunks))
	}

	task := acquireProgress(a.progress, len(order))
	defer task.Done()

	states := make(map[string]*revisionState, len(ancestry))
	merges := newMergeCache()

	for i, rk := range order {
		ks := rk.String()
		lines, ok := textByKey[ks]
		if !ok {
			return nil, nil, errs.NewRevisionNotPresentError(rk)
		}
		parents := parentsByKey[ks]

		ann := make([]Annotation, len(lines))
		for li := range ann {
			ann[li] = single(rk)
		}

		for pi, p := range parents {
			ps, ok := states[p.String()]
			if !ok {
				// ghost or not in ancestry: nothing to copy across.
				continue
			}
			blocks := a.matcher.MatchingBlocks(ps.lines, lines)
			if pi == 0 {
				applyFirstParent(ann, ps.annotations, blocks)
			} else {
				applyOtherParent(ann, ps.annotations, blocks, rk, merges)
			}
		}

		states[ks] = &revisionState{
			lines:       lines,
			annotations: ann,
			parents:     parents,
			needed:      needed[ks],
		}

		for _, p := range parents {
			ps, ok := states[p.String()]
			if !ok {
				continue
			}
			ps.needed--
			if ps.needed <= 0 {
				ps.lines = nil
				ps.annotations = nil
			}
		}

		task.Step(i + 1)
	}

	final := states[target.String()]
	return final.annotations, final.lines, nil
}

// applyFirstParent copies a parent's annotation straight across for
// every matching block. This is the common fast path: in
// representative data, most lines carry over unchanged from the
// first parent.
func applyFirstParent(ann []Annotation, parentAnn []Annotation, blocks []MatchingBlock) {
	for _, b := range blocks {
		for k := 0; k < b.Length; k++ {
			ann[b.BIndex+k] = parentAnn[b.AIndex+k]
		}
	}
}

// applyOtherParent implements the non-first-parent rule: a still-
// sentinel line is replaced outright by the parent's annotation,
// otherwise the two sorted tuples are merged.
func applyOtherParent(ann []Annotation, parentAnn []Annotation, blocks []MatchingBlock, r key.Key, merges *mergeCache) {
	for _, b := range blocks {
		for k := 0; k < b.Length; k++ {
			idx := b.BIndex + k
			pa := parentAnn[b.AIndex+k]
			if ann[idx].isSentinelFor(r) {
				ann[idx] = pa
			} else {
				ann[idx] = merges.merge(ann[idx], pa)
			}
		}
	}
}

// FlatLine is one line of AnnotateFlat's result: the single "best"
// origin revision paired with the line text.
type FlatLine struct {
	Origin key.Key
	Line   []byte
}

// AnnotateFlat collapses each line's full annotation tuple to a
// single best origin, using the known graph's heads query to resolve
// ties among co-equal origins.
func (a *Annotator) AnnotateFlat(target key.Key, g *graph.Graph) ([]FlatLine, error) {
	annotations, lines, err := a.Annotate(target)
	if err != nil {
		return nil, err
	}

	out := make([]FlatLine, len(lines))
	for i, ann := range annotations {
		var origin key.Key
		switch {
		case len(ann) == 1:
			origin = ann[0]
		default:
			heads := g.Heads([]key.Key(ann))
			switch len(heads) {
			case 1:
				origin = heads[0]
			default:
				sorted := make(Annotation, len(heads))
				copy(sorted, heads)
				sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
				origin = a.tiebreak(sorted)
			}
		}
		out[i] = FlatLine{Origin: origin, Line: lines[i]}
	}
	return out, nil
}
