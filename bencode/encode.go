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

package bencode

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/arbornet/revcore/errs"
)

// Encode serializes v deterministically. Accepted inputs:
//   - signed integers of any width, and bool (encoded as i0e/i1e)
//   - []byte / Bytes (byte strings)
//   - string (encoded as a byte string)
//   - Opaque (spliced in verbatim)
//   - List or []Value (ordered lists); other slice and array types
//     are not accepted
//   - map[string]Value / *Dict (byte-string-keyed maps; keys sorted)
//   - Int, List, *Dict (the Decode output types, round-tripping)
//
// Any other type is a TypeError naming the value's kind.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeInto(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeInto(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case Opaque:
		buf.Write(t)
		return nil
	case bool:
		if t {
			buf.WriteString("i1e")
		} else {
			buf.WriteString("i0e")
		}
		return nil
	case Int:
		return encodeInt(buf, int64(t))
	case int:
		return encodeInt(buf, int64(t))
	case int8:
		return encodeInt(buf, int64(t))
	case int16:
		return encodeInt(buf, int64(t))
	case int32:
		return encodeInt(buf, int64(t))
	case int64:
		return encodeInt(buf, t)
	case Bytes:
		return encodeBytes(buf, []byte(t))
	case []byte:
		return encodeBytes(buf, t)
	case string:
		return encodeBytes(buf, []byte(t))
	case List:
		return encodeList(buf, []Value(t))
	case []Value:
		return encodeList(buf, t)
	case *Dict:
		return encodeDict(buf, t)
	case map[string]Value:
		d := NewDict()
		for k, val := range t {
			d.Set(k, val)
		}
		return encodeDict(buf, d)
	default:
		return errs.NewTypeError(fmt.Sprintf("%T", v))
	}
}

func encodeInt(buf *bytes.Buffer, n int64) error {
	buf.WriteByte('i')
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteByte('e')
	return nil
}

func encodeBytes(buf *bytes.Buffer, b []byte) error {
	buf.WriteString(strconv.Itoa(len(b)))
	buf.WriteByte(':')
	buf.Write(b)
	return nil
}

func encodeList(buf *bytes.Buffer, items []Value) error {
	buf.WriteByte('l')
	for _, item := range items {
		if err := encodeInto(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte('e')
	return nil
}

func encodeDict(buf *bytes.Buffer, d *Dict) error {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	sort.Strings(keys)

	buf.WriteByte('d')
	for _, k := range keys {
		if err := encodeBytes(buf, []byte(k)); err != nil {
			return err
		}
		v, _ := d.Get(k)
		if err := encodeInto(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte('e')
	return nil
}
