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

package dirstate

import (
	"bytes"
	"strconv"

	"github.com/arbornet/revcore/errs"
)

// Minikind is the single-byte tag for a dirstate entry's kind in one
// tree: file, directory, symlink, tree-reference, absent, or relocated.
type Minikind byte

const (
	KindAbsent    Minikind = 'a'
	KindDirectory Minikind = 'd'
	KindFile      Minikind = 'f'
	KindSymlink   Minikind = 'l'
	KindRelocated Minikind = 'r'
	KindTreeRef   Minikind = 't'
)

func validMinikind(b byte) bool {
	switch Minikind(b) {
	case KindAbsent, KindDirectory, KindFile, KindSymlink, KindRelocated, KindTreeRef:
		return true
	}
	return false
}

// TreeState is one tree's view of a dirstate entry: the
// (minikind, fingerprint, size, is_executable, info) 5-tuple.
type TreeState struct {
	Minikind     Minikind
	Fingerprint  []byte
	Size         uint32
	IsExecutable bool
	Info         []byte // packed stat footprint (working tree) or revision id (parent tree)
}

// Entry is one dirstate record:
// ((dirname, basename, file_id), [per_tree_state, ...]).
type Entry struct {
	Dirname    []byte
	Basename   []byte
	FileID     []byte
	TreeStates []TreeState
}

// Dirblock is a per-directory run of entries sharing a common
// Dirname, sorted by Basename.
type Dirblock struct {
	Dirname []byte
	Entries []Entry
}

// Serialize renders blocks in the packed record format: NUL-separated
// fields, one record per line, with a dirname field only on the first
// record of each new dirblock.
func Serialize(blocks []Dirblock) []byte {
	var buf bytes.Buffer
	for _, block := range blocks {
		for i, e := range block.Entries {
			if i == 0 {
				buf.Write(block.Dirname)
				buf.WriteByte(0)
			}
			buf.Write(e.Basename)
			buf.WriteByte(0)
			buf.Write(e.FileID)
			for _, ts := range e.TreeStates {
				buf.WriteByte(0)
				buf.WriteByte(byte(ts.Minikind))
				buf.WriteByte(0)
				buf.Write(ts.Fingerprint)
				buf.WriteByte(0)
				buf.WriteString(strconv.FormatUint(uint64(ts.Size), 10))
				buf.WriteByte(0)
				if ts.IsExecutable {
					buf.WriteByte('y')
				} else {
					buf.WriteByte('n')
				}
				buf.WriteByte(0)
				buf.Write(ts.Info)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// Parse parses the packed dirblock section that follows a dirstate
// file's (out-of-scope) header, given the number of trees every
// record carries: 1 + num_present_parents. stateObject names the
// containing state object for any DirstateCorruptError raised.
func Parse(data []byte, numTrees int, stateObject string) ([]Dirblock, error) {
	var blocks []Dirblock
	var curDirname []byte
	haveCur := false

	pos := 0
	for pos < len(data) {
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			return nil, errs.NewDirstateCorruptError(stateObject, "record missing trailing newline")
		}
		line := data[pos : pos+nl]
		pos += nl + 1

		fields := bytes.Split(line, []byte{0})
		expectedWithout := 2 + 5*numTrees
		expectedWith := 3 + 5*numTrees

		var dirname []byte
		var rest [][]byte
		switch len(fields) {
		case expectedWith:
			dirname = fields[0]
			rest = fields[1:]
			haveCur = true
			curDirname = dirname
		case expectedWithout:
			if !haveCur {
				return nil, errs.NewDirstateCorruptError(stateObject, "first record must carry a dirname")
			}
			dirname = curDirname
			rest = fields
		default:
			return nil, errs.NewDirstateCorruptError(stateObject, "unexpected field count in record")
		}

		basename := rest[0]
		fileID := rest[1]
		treeFields := rest[2:]

		states := make([]TreeState, numTrees)
		for t := 0; t < numTrees; t++ {
			f := treeFields[t*5 : t*5+5]
			if len(f[0]) != 1 || !validMinikind(f[0][0]) {
				return nil, errs.NewDirstateCorruptError(stateObject, "invalid minikind")
			}
			size, err := strconv.ParseUint(string(f[2]), 10, 32)
			if err != nil {
				return nil, errs.WrapDirstateCorruptError(err, stateObject, "non-numeric size field")
			}
			if len(f[3]) != 1 || (f[3][0] != 'y' && f[3][0] != 'n') {
				return nil, errs.NewDirstateCorruptError(stateObject, "is_executable must be y or n")
			}
			states[t] = TreeState{
				Minikind:     Minikind(f[0][0]),
				Fingerprint:  append([]byte(nil), f[1]...),
				Size:         uint32(size),
				IsExecutable: f[3][0] == 'y',
				Info:         append([]byte(nil), f[4]...),
			}
		}

		entry := Entry{
			Dirname:    append([]byte(nil), dirname...),
			Basename:   append([]byte(nil), basename...),
			FileID:     append([]byte(nil), fileID...),
			TreeStates: states,
		}

		if len(blocks) == 0 || !bytes.Equal(blocks[len(blocks)-1].Dirname, dirname) {
			blocks = append(blocks, Dirblock{Dirname: append([]byte(nil), dirname...)})
		}
		last := &blocks[len(blocks)-1]
		last.Entries = append(last.Entries, entry)
	}
	return blocks, nil
}
