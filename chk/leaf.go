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

package chk

import (
	"bytes"
	"strconv"

	"github.com/arbornet/revcore/errs"
	"github.com/arbornet/revcore/intern"
	"github.com/arbornet/revcore/key"
)

const leafMagic = "chkleaf:\n"

// LeafItem is one entry of a CHK leaf node: a width-tuple key mapped
// to a value byte string.
type LeafItem struct {
	Key   key.Key
	Value []byte
}

// LeafNode is a content-addressed map fragment carrying a set of
// key/value items that share a common leading key prefix.
type LeafNode struct {
	MaximumSize  int
	Width        int
	Length       int
	CommonPrefix key.Key // zero-length (Valid()==false) when Length==0
	Items        []LeafItem
}

// commonPrefixLen returns how many of the leading components are
// shared by every item's key.
func commonPrefixLen(items []LeafItem) int {
	if len(items) == 0 {
		return 0
	}
	width := items[0].Key.Len()
	p := width
	for _, it := range items[1:] {
		for j := 0; j < p; j++ {
			if !bytes.Equal(it.Key.Part(j), items[0].Key.Part(j)) {
				p = j
				break
			}
		}
	}
	return p
}

// NewLeaf builds a LeafNode from items, computing the shared leading
// prefix automatically.
func NewLeaf(maximumSize, width int, items []LeafItem) *LeafNode {
	l := &LeafNode{
		MaximumSize: maximumSize,
		Width:       width,
		Length:      len(items),
		Items:       items,
	}
	if len(items) > 0 {
		p := commonPrefixLen(items)
		if p > 0 {
			parts := make([][]byte, p)
			for i := 0; i < p; i++ {
				parts[i] = items[0].Key.Part(i)
			}
			l.CommonPrefix = key.New(parts...)
		}
	}
	return l
}

// rawSize is items_serialized_length + length*len(common_prefix).
func (l *LeafNode) rawSize() int {
	return l.itemsSerializedLength() + l.Length*l.commonPrefixByteLen()
}

func (l *LeafNode) commonPrefixByteLen() int {
	if !l.CommonPrefix.Valid() {
		return 0
	}
	return len(serializeComponents(l.CommonPrefix))
}

func (l *LeafNode) itemsSerializedLength() int {
	var n int
	for _, it := range l.Items {
		n += len(serializeRecord(it, l.prefixComponents()))
	}
	return n
}

func (l *LeafNode) prefixComponents() int {
	if !l.CommonPrefix.Valid() {
		return 0
	}
	return l.CommonPrefix.Len()
}

// serializeComponents joins a key's components with NUL, the shape
// common_prefix and record tails share.
func serializeComponents(k key.Key) []byte {
	var buf bytes.Buffer
	for i := 0; i < k.Len(); i++ {
		if i > 0 {
			buf.WriteByte(0)
		}
		buf.Write(k.Part(i))
	}
	return buf.Bytes()
}

// serializeRecord renders one leaf record:
// <tail components, NUL-joined><trailing NUL><num_value_lines>\n<value_body>
func serializeRecord(it LeafItem, p int) []byte {
	var buf bytes.Buffer
	tailCount := it.Key.Len() - p
	for i := 0; i < tailCount; i++ {
		buf.Write(it.Key.Part(p + i))
		buf.WriteByte(0)
	}
	lines := valueLines(it.Value)
	buf.WriteString(strconv.Itoa(len(lines)))
	buf.WriteByte('\n')
	for _, ln := range lines {
		buf.Write(ln)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// valueLines splits a value on '\n' into the segments the record
// format stores, one per "newline-terminated line". bytes.Split/Join
// on '\n' round-trip exactly for any input (including one with a
// trailing or embedded '\n'), so no segment is ever dropped or added.
func valueLines(v []byte) [][]byte {
	return bytes.Split(v, []byte{'\n'})
}

// Serialize renders l in the chkleaf: wire format.
func (l *LeafNode) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString(leafMagic)
	buf.WriteString(strconv.Itoa(l.MaximumSize))
	buf.WriteByte('\n')
	buf.WriteString(strconv.Itoa(l.Width))
	buf.WriteByte('\n')
	buf.WriteString(strconv.Itoa(l.Length))
	buf.WriteByte('\n')
	if l.CommonPrefix.Valid() {
		buf.Write(serializeComponents(l.CommonPrefix))
	}
	buf.WriteByte('\n')
	p := l.prefixComponents()
	for _, it := range l.Items {
		buf.Write(serializeRecord(it, p))
	}
	return buf.Bytes()
}

// ParseLeaf parses a chkleaf: blob, interning each assembled key
// through interner (nil disables interning). Individual key components
// are not interned separately.
func ParseLeaf(blob []byte, interner *intern.Set) (*LeafNode, error) {
	if !bytes.HasPrefix(blob, []byte(leafMagic)) {
		return nil, errs.NewFormatError("missing chkleaf: magic")
	}
	if len(blob) == 0 || blob[len(blob)-1] != '\n' {
		return nil, errs.NewFormatError("leaf blob does not end in newline")
	}
	pos := len(leafMagic)

	maxSize, pos, err := readIntLine(blob, pos)
	if err != nil {
		return nil, err
	}
	width, pos, err := readIntLine(blob, pos)
	if err != nil {
		return nil, err
	}
	length, pos, err := readIntLine(blob, pos)
	if err != nil {
		return nil, err
	}
	prefixLine, pos, err := readLine(blob, pos)
	if err != nil {
		return nil, err
	}

	var prefix key.Key
	p := 0
	if len(prefixLine) > 0 {
		parts := bytes.Split(prefixLine, []byte{0})
		p = len(parts)
		prefix = key.New(parts...)
	}
	if length == 0 && prefix.Valid() {
		return nil, errs.NewFormatError("leaf with length 0 must have no common_prefix")
	}
	if p > width {
		return nil, errs.NewFormatError("common_prefix has more components than width")
	}

	items := make([]LeafItem, 0, length)
	for pos < len(blob) {
		it, newPos, err := parseRecord(blob, pos, prefix, p, width, interner)
		if err != nil {
			return nil, err
		}
		pos = newPos
		items = append(items, it)
	}
	if len(items) != length {
		return nil, errs.NewFormatError("leaf item count does not match declared length")
	}

	return &LeafNode{
		MaximumSize:  maxSize,
		Width:        width,
		Length:       length,
		CommonPrefix: prefix,
		Items:        items,
	}, nil
}

func parseRecord(blob []byte, pos int, prefix key.Key, p, width int, interner *intern.Set) (LeafItem, int, error) {
	tailCount := width - p
	tailParts := make([][]byte, 0, tailCount)
	for i := 0; i < tailCount; i++ {
		nul := bytes.IndexByte(blob[pos:], 0)
		if nul < 0 {
			return LeafItem{}, 0, errs.NewFormatError("truncated record key component")
		}
		tailParts = append(tailParts, blob[pos:pos+nul])
		pos += nul + 1
	}

	numLine, pos, err := readLine(blob, pos)
	if err != nil {
		return LeafItem{}, 0, err
	}
	numLines, err := strconv.Atoi(string(numLine))
	if err != nil {
		return LeafItem{}, 0, errs.WrapFormatError(err, "invalid num_value_lines")
	}
	if numLines < 0 {
		return LeafItem{}, 0, errs.NewFormatError("invalid num_value_lines")
	}

	lines := make([][]byte, numLines)
	for i := 0; i < numLines; i++ {
		var line []byte
		line, pos, err = readLine(blob, pos)
		if err != nil {
			return LeafItem{}, 0, err
		}
		lines[i] = line
	}
	value := bytes.Join(lines, []byte{'\n'})

	allParts := make([][]byte, 0, width)
	for i := 0; i < p; i++ {
		allParts = append(allParts, prefix.Part(i))
	}
	allParts = append(allParts, tailParts...)
	if len(allParts) != width {
		return LeafItem{}, 0, errs.NewFormatError("assembled key does not have width components")
	}
	k := key.New(allParts...)
	if interner != nil {
		k = interner.Add(k)
	}

	return LeafItem{Key: k, Value: value}, pos, nil
}

// currentSize returns the byte length of l's own serialization; for
// any L parsed from bytes B, currentSize() must equal len(B).
func (l *LeafNode) currentSize() int {
	return len(l.Serialize())
}

func readLine(blob []byte, pos int) ([]byte, int, error) {
	nl := bytes.IndexByte(blob[pos:], '\n')
	if nl < 0 {
		return nil, 0, errs.NewFormatError("missing line terminator")
	}
	return blob[pos : pos+nl], pos + nl + 1, nil
}

func readIntLine(blob []byte, pos int) (int, int, error) {
	line, newPos, err := readLine(blob, pos)
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.Atoi(string(line))
	if err != nil {
		return 0, 0, errs.WrapFormatError(err, "expected integer line")
	}
	return n, newPos, nil
}
