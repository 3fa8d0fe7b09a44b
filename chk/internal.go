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
)

const internalMagic = "chknode:\n"

// InternalItem is one entry of a CHK internal node: an item prefix
// (of uniform length across the node) pointing at a child's flat key.
type InternalItem struct {
	ItemSuffix []byte // item prefix, with the node's shared Prefix stripped
	ChildKey   []byte // the 1-tuple flat key, stored raw (the key wire format is the caller's concern)
}

// InternalNode is a content-addressed map fragment that routes by key
// prefix to child nodes.
type InternalNode struct {
	MaximumSize int
	Width       int
	Length      int
	Prefix      []byte
	Items       []InternalItem
}

// NewInternal builds an InternalNode. Prefix and each item's
// ItemSuffix are copied defensively.
func NewInternal(maximumSize, width int, prefix []byte, items []InternalItem) *InternalNode {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	owned := make([]InternalItem, len(items))
	for i, it := range items {
		suf := make([]byte, len(it.ItemSuffix))
		copy(suf, it.ItemSuffix)
		ck := make([]byte, len(it.ChildKey))
		copy(ck, it.ChildKey)
		owned[i] = InternalItem{ItemSuffix: suf, ChildKey: ck}
	}
	return &InternalNode{
		MaximumSize: maximumSize,
		Width:       width,
		Length:      len(items),
		Prefix:      p,
		Items:       owned,
	}
}

// FullItemPrefix returns prefix||item_suffix for the i'th item.
func (n *InternalNode) FullItemPrefix(i int) []byte {
	out := make([]byte, 0, len(n.Prefix)+len(n.Items[i].ItemSuffix))
	out = append(out, n.Prefix...)
	out = append(out, n.Items[i].ItemSuffix...)
	return out
}

// Serialize renders n in the chknode: wire format.
func (n *InternalNode) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString(internalMagic)
	buf.WriteString(strconv.Itoa(n.MaximumSize))
	buf.WriteByte('\n')
	buf.WriteString(strconv.Itoa(n.Width))
	buf.WriteByte('\n')
	buf.WriteString(strconv.Itoa(n.Length))
	buf.WriteByte('\n')
	buf.Write(n.Prefix)
	buf.WriteByte('\n')
	for _, it := range n.Items {
		buf.Write(it.ItemSuffix)
		buf.WriteByte(0)
		buf.Write(it.ChildKey)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseInternal parses a chknode: blob. It accepts only blobs whose
// magic matches and that end with '\n'.
func ParseInternal(blob []byte) (*InternalNode, error) {
	if !bytes.HasPrefix(blob, []byte(internalMagic)) {
		return nil, errs.NewFormatError("missing chknode: magic")
	}
	if len(blob) == 0 || blob[len(blob)-1] != '\n' {
		return nil, errs.NewFormatError("internal node blob does not end in newline")
	}
	pos := len(internalMagic)

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
	prefix, pos, err := readLine(blob, pos)
	if err != nil {
		return nil, err
	}
	prefixCopy := append([]byte(nil), prefix...)

	items := make([]InternalItem, 0, length)
	for pos < len(blob) {
		line, newPos, err := readLine(blob, pos)
		if err != nil {
			return nil, err
		}
		pos = newPos
		nul := bytes.IndexByte(line, 0)
		if nul < 0 {
			return nil, errs.NewFormatError("internal record missing NUL separator")
		}
		suffix := append([]byte(nil), line[:nul]...)
		childKey := append([]byte(nil), line[nul+1:]...)
		items = append(items, InternalItem{ItemSuffix: suffix, ChildKey: childKey})
	}
	if len(items) != length {
		return nil, errs.NewFormatError("internal node item count does not match declared length")
	}

	return &InternalNode{
		MaximumSize: maxSize,
		Width:       width,
		Length:      length,
		Prefix:      prefixCopy,
		Items:       items,
	}, nil
}
