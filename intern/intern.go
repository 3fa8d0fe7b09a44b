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

// Package intern implements Component A: a set of key.Key tuples in
// which equal elements share a single canonical representative. It is
// used to deduplicate the (file-id, revision-id)-shaped keys the rest
// of the core exchanges in bulk.
//
// The table is open-addressed with CPython-dict-style perturbed
// probing and owns its elements natively: every slot is empty, a
// tombstone, or live, tracked with a small enum rather than a
// sentinel key value or manual reference counting.
package intern

import (
	"fmt"

	"github.com/arbornet/revcore/d"
	"github.com/arbornet/revcore/errs"
	"github.com/arbornet/revcore/key"
)

const (
	initialCapacity = 1024

	// loadFactorNum/loadFactorDen bounds (live+dummy)/capacity; a
	// resize (doubling) happens on add when this ratio would be
	// exceeded.
	loadFactorNum = 2
	loadFactorDen = 3

	// cleanupDummyNum/cleanupDummyDen bounds dummy/capacity; a
	// cleanup-resize (same capacity, just compacted) happens on
	// discard when this ratio is exceeded.
	cleanupDummyNum = 1
	cleanupDummyDen = 5
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotDummy
	slotLive
)

type slot struct {
	state slotState
	k     key.Key
}

// Set is a hash set of key.Key tuples in which equal elements share a
// single canonical representative.
type Set struct {
	slots []slot
	fill  int // live + dummy slots ever occupied since last resize
	used  int // live slots
	mods  int // bumped on every structural mutation; iteration checks it
}

// Options configures a Set at construction.
type Options struct {
	// InitialCapacity overrides the default initial table size (1024).
	// Must be a power of two if set; zero means use the default.
	InitialCapacity int
}

// New builds an empty Set.
func New(opts Options) *Set {
	cap := initialCapacity
	if opts.InitialCapacity != 0 {
		d.PanicIfFalse(isPowerOfTwo(opts.InitialCapacity), "intern: initial capacity must be a power of two")
		cap = opts.InitialCapacity
	}
	return &Set{slots: newTable(cap)}
}

// newTable allocates a slot array of the given capacity. The Go
// runtime reports allocation failure as a panic rather than a nil
// return; newTable recovers that runtime panic and re-panics with the
// fatal errs.OutOfMemoryError, so a failed table or resize allocation
// is distinguishable from any other panic.
func newTable(capacity int) (t []slot) {
	defer func() {
		if r := recover(); r != nil {
			panic(errs.NewOutOfMemoryError(fmt.Sprintf("allocating intern table of capacity %d: %v", capacity, r)))
		}
	}()
	return make([]slot, capacity)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Len returns the number of live elements.
func (s *Set) Len() int { return s.used }

// Add returns the canonical representative for k: the existing
// element if one equal to k is already present, or k itself once
// inserted.
func (s *Set) Add(k key.Key) key.Key {
	if idx, found := s.find(k); found {
		return s.slots[idx].k
	}

	if s.needsGrowthBeforeInsert() {
		s.resize(len(s.slots) * 2)
	}

	s.insertSlot(k)
	s.mods++
	return k
}

// needsGrowthBeforeInsert reports whether inserting one more element
// would push (fill+1)/capacity past the 2/3 load factor.
func (s *Set) needsGrowthBeforeInsert() bool {
	return (s.fill+1)*loadFactorDen > loadFactorNum*len(s.slots)
}

// insertSlot places k into the table (which must have room) and
// returns the slot index used. fill is incremented only when an
// empty slot is claimed (a tombstone reuse leaves it unchanged); used
// is incremented unconditionally on insertion.
func (s *Set) insertSlot(k key.Key) int {
	mask := uint64(len(s.slots) - 1)
	perturb := k.Hash()
	i := k.Hash() & mask

	firstDummy := -1
	for {
		switch s.slots[i].state {
		case slotEmpty:
			target := i
			if firstDummy >= 0 {
				target = uint64(firstDummy)
			} else {
				s.fill++
			}
			s.slots[target] = slot{state: slotLive, k: k}
			s.used++
			return int(target)
		case slotDummy:
			if firstDummy < 0 {
				firstDummy = int(i)
			}
		case slotLive:
			if s.slots[i].k.Equal(k) {
				// Caller should have found this via find(); defensive.
				return int(i)
			}
		}
		i = (i<<2 + i + perturb + 1) & mask
		perturb >>= 5
	}
}

// find locates k, returning its slot index and whether it was found.
func (s *Set) find(k key.Key) (int, bool) {
	if len(s.slots) == 0 {
		return 0, false
	}
	mask := uint64(len(s.slots) - 1)
	perturb := k.Hash()
	i := k.Hash() & mask

	for {
		switch s.slots[i].state {
		case slotEmpty:
			return 0, false
		case slotLive:
			if s.slots[i].k.Equal(k) {
				return int(i), true
			}
		case slotDummy:
			// keep probing
		}
		i = (i<<2 + i + perturb + 1) & mask
		perturb >>= 5
	}
}

// Contains reports whether an element equal to k is present.
func (s *Set) Contains(k key.Key) bool {
	_, ok := s.find(k)
	return ok
}

// Get returns the canonical representative equal to k, if present.
func (s *Set) Get(k key.Key) (key.Key, bool) {
	idx, ok := s.find(k)
	if !ok {
		return key.Key{}, false
	}
	return s.slots[idx].k, true
}

// Discard removes the element equal to k, if present, turning its
// slot into a tombstone so later probes over it still terminate
// correctly.
func (s *Set) Discard(k key.Key) {
	idx, ok := s.find(k)
	if !ok {
		return
	}
	s.slots[idx] = slot{state: slotDummy}
	s.used--
	s.mods++

	if s.dummyCount()*cleanupDummyDen > cleanupDummyNum*len(s.slots) {
		s.resize(len(s.slots)) // cleanup-resize: same capacity, compacts dummies
	}
}

func (s *Set) dummyCount() int {
	return s.fill - s.used
}

// resize rebuilds the table at newCapacity, rehashing every live
// element and dropping tombstones. newCapacity must be a power of two
// no smaller than enough to hold the live elements under the load
// factor.
func (s *Set) resize(newCapacity int) {
	for s.used*loadFactorDen > loadFactorNum*newCapacity {
		newCapacity *= 2
	}
	old := s.slots
	s.slots = newTable(newCapacity)
	s.fill = 0
	s.used = 0
	for _, sl := range old {
		if sl.state == slotLive {
			s.insertSlot(sl.k)
		}
	}
}

// Iterator yields live elements in table order. It detects concurrent
// structural mutation and panics rather than returning inconsistent
// results.
type Iterator struct {
	s        *Set
	startMod int
	pos      int
}

// MutatedDuringIterationError is the distinct error kind surfaced when
// a Set is mutated while an Iterator over it is still in use.
type MutatedDuringIterationError struct{}

func (MutatedDuringIterationError) Error() string {
	return "intern: set mutated during iteration"
}

// Iter returns a fresh Iterator over s.
func (s *Set) Iter() *Iterator {
	return &Iterator{s: s, startMod: s.mods}
}

// Next returns the next live element, or ok=false at end of
// iteration. It panics with MutatedDuringIterationError if s was
// structurally mutated since Iter was called.
func (it *Iterator) Next() (key.Key, bool) {
	if it.s.mods != it.startMod {
		panic(MutatedDuringIterationError{})
	}
	for it.pos < len(it.s.slots) {
		sl := it.s.slots[it.pos]
		it.pos++
		if sl.state == slotLive {
			return sl.k, true
		}
	}
	return key.Key{}, false
}

// All collects every live element into a slice, in table order. It is
// a convenience for callers that do not need the fail-fast Iterator
// semantics inline.
func (s *Set) All() []key.Key {
	out := make([]key.Key, 0, s.used)
	it := s.Iter()
	for {
		k, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, k)
	}
	return out
}
