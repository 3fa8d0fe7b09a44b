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

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MatchingBlock is one run of lines shared between two texts:
// (a_idx, b_idx, length).
type MatchingBlock struct {
	AIndex int
	BIndex int
	Length int
}

// LineMatcher computes the matching blocks between two line
// sequences, in strictly increasing (AIndex, BIndex) order. Blocks
// never overlap; a zero-length sentinel block may trail the list.
type LineMatcher interface {
	MatchingBlocks(a, b [][]byte) []MatchingBlock
}

// diffMatchPatchMatcher is the default LineMatcher: lines are
// tokenized to single runes via DiffLinesToChars (go-diff's own
// line-mode trick) and the resulting rune strings are diffed with
// Myers' algorithm, then the Equal ops are translated back into line
// index runs.
type diffMatchPatchMatcher struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewDiffMatchPatchMatcher builds the default LineMatcher.
func NewDiffMatchPatchMatcher() LineMatcher {
	return &diffMatchPatchMatcher{dmp: diffmatchpatch.New()}
}

func (m *diffMatchPatchMatcher) MatchingBlocks(a, b [][]byte) []MatchingBlock {
	aText, bText := joinAsText(a), joinAsText(b)
	chars1, chars2, lineArray := m.dmp.DiffLinesToChars(aText, bText)
	diffs := m.dmp.DiffMain(chars1, chars2, false)
	diffs = m.dmp.DiffCharsToLines(diffs, lineArray)

	var blocks []MatchingBlock
	aIdx, bIdx := 0, 0
	for _, d := range diffs {
		n := lineCount(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if n > 0 {
				blocks = append(blocks, MatchingBlock{AIndex: aIdx, BIndex: bIdx, Length: n})
			}
			aIdx += n
			bIdx += n
		case diffmatchpatch.DiffDelete:
			aIdx += n
		case diffmatchpatch.DiffInsert:
			bIdx += n
		}
	}
	blocks = append(blocks, MatchingBlock{AIndex: aIdx, BIndex: bIdx, Length: 0})
	return blocks
}

// joinAsText concatenates lines (each already carrying its trailing
// newline, save possibly the last) into the flat string DiffLinesToChars
// expects.
func joinAsText(lines [][]byte) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.Write(l)
	}
	return sb.String()
}

// lineCount reports how many lines a diff segment's text spans, using
// the same trailing-newline convention as splitLines.
func lineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
