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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbornet/revcore/errs"
)

func TestEncodeRoundTrip(t *testing.T) {
	d := NewDict()
	d.Set("n", Int(42))
	d.Set("parents", List{Bytes("a"), Bytes("bb")})

	encoded, err := Encode(d)
	require.NoError(t, err)
	assert.Equal(t, "d1:ni42e7:parentsl1:a2:bbee", string(encoded))

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	got, ok := decoded.(*Dict)
	require.True(t, ok)
	n, _ := got.Get("n")
	assert.Equal(t, Int(42), n)
	parents, _ := got.Get("parents")
	assert.Equal(t, List{Bytes("a"), Bytes("bb")}, parents)
}

func TestDecodeRejectsLeadingZero(t *testing.T) {
	_, err := Decode([]byte("i03e"))
	require.Error(t, err)
	var fe *errs.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestDecodeRejectsDisorderedKeys(t *testing.T) {
	_, err := Decode([]byte("d1:bi1e1:ai2ee"))
	require.Error(t, err)
}

func TestDecodeRejectsNegativeZero(t *testing.T) {
	_, err := Decode([]byte("i-0e"))
	require.Error(t, err)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	_, err := Decode([]byte("i1eX"))
	require.Error(t, err)
}

func TestDecodeTooDeep(t *testing.T) {
	nested := "le"
	for i := 0; i < 10; i++ {
		nested = "l" + nested + "e"
	}
	dec := NewDecoder(5)
	_, err := dec.Decode([]byte(nested))
	require.Error(t, err)
	var tooDeep *errs.TooDeeplyNestedError
	assert.ErrorAs(t, err, &tooDeep)
}

func TestBooleanEncoding(t *testing.T) {
	enc, err := Encode(true)
	require.NoError(t, err)
	assert.Equal(t, "i1e", string(enc))

	enc, err = Encode(false)
	require.NoError(t, err)
	assert.Equal(t, "i0e", string(enc))
}

func TestOpaqueSplicedVerbatim(t *testing.T) {
	d := NewDict()
	d.Set("x", Opaque("i5e"))
	enc, err := Encode(d)
	require.NoError(t, err)
	assert.Equal(t, "d1:xi5ee", string(enc))
}

func TestEncodeUnsupportedType(t *testing.T) {
	_, err := Encode(3.14)
	require.Error(t, err)
	var te *errs.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestRoundTripFuzz(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		v := randomValue(r, 0)
		encoded, err := Encode(toEncodable(v))
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

// randomValue builds a random Value tree (the decode-output shapes),
// bounded in depth, for round-trip fuzzing.
func randomValue(r *rand.Rand, depth int) Value {
	choice := r.Intn(4)
	if depth > 3 {
		choice = r.Intn(2)
	}
	switch choice {
	case 0:
		return Int(r.Int63() - (1 << 62))
	case 1:
		b := make([]byte, r.Intn(10))
		r.Read(b)
		return Bytes(b)
	case 2:
		n := r.Intn(4)
		list := make(List, n)
		for i := range list {
			list[i] = randomValue(r, depth+1)
		}
		return list
	default:
		d := NewDict()
		n := r.Intn(4)
		for i := 0; i < n; i++ {
			key := randDistinctKey(d, r)
			d.Set(key, randomValue(r, depth+1))
		}
		return d
	}
}

func randDistinctKey(d *Dict, r *rand.Rand) string {
	for {
		k := string(rune('a' + r.Intn(26)))
		if _, ok := d.Get(k); !ok {
			return k
		}
	}
}

// toEncodable is the identity function at the Value level; it exists
// to document that the Value algebra Decode returns is exactly what
// Encode accepts back in.
func toEncodable(v Value) interface{} { return v }
