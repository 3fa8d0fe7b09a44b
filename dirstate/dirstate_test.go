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
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareByDirsOrdersSlashBelowAnyByte(t *testing.T) {
	paths := [][]byte{[]byte("a-b"), []byte("a/b"), []byte("a")}
	sort.Slice(paths, func(i, j int) bool { return CompareByDirs(paths[i], paths[j]) < 0 })
	assert.Equal(t, [][]byte{[]byte("a"), []byte("a/b"), []byte("a-b")}, paths)
}

func TestCompareByDirsEqual(t *testing.T) {
	assert.Equal(t, 0, CompareByDirs([]byte("same"), []byte("same")))
}

func TestComparePathByDirblockGroupsSiblings(t *testing.T) {
	paths := [][]byte{
		[]byte("z/b"),
		[]byte("a-b"),
		[]byte("z/a"),
		[]byte("a"),
	}
	sort.Slice(paths, func(i, j int) bool { return ComparePathByDirblock(paths[i], paths[j]) < 0 })
	assert.Equal(t, [][]byte{
		[]byte("a"),
		[]byte("a-b"),
		[]byte("z/a"),
		[]byte("z/b"),
	}, paths)
}

func TestBisectPathLeftRight(t *testing.T) {
	paths := [][]byte{[]byte("a"), []byte("b"), []byte("b"), []byte("c")}
	assert.Equal(t, 1, BisectPathLeft(paths, []byte("b")))
	assert.Equal(t, 3, BisectPathRight(paths, []byte("b")))
}

func TestBisectDirblock(t *testing.T) {
	blocks := []Dirblock{{Dirname: []byte("")}, {Dirname: []byte("a")}, {Dirname: []byte("a/b")}}
	assert.Equal(t, 1, BisectDirblock(blocks, []byte("a")))
	assert.Equal(t, 3, BisectDirblock(blocks, []byte("z")))
}

func TestPathCacheMemoizes(t *testing.T) {
	c := NewPathCache()
	first := c.Split([]byte("a/b/c"))
	second := c.Split([]byte("a/b/c"))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, first)
	require.Equal(t, len(first), len(second))
}

func oneTreeEntry(dirname, basename, fileID string, ts TreeState) Entry {
	return Entry{
		Dirname:    []byte(dirname),
		Basename:   []byte(basename),
		FileID:     []byte(fileID),
		TreeStates: []TreeState{ts},
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	blocks := []Dirblock{
		{
			Dirname: []byte(""),
			Entries: []Entry{
				oneTreeEntry("", "a", "file-a-id", TreeState{
					Minikind: KindFile, Fingerprint: []byte("deadbeef"), Size: 10, IsExecutable: false, Info: []byte("stat-a"),
				}),
				oneTreeEntry("", "b", "file-b-id", TreeState{
					Minikind: KindDirectory, Fingerprint: nil, Size: 0, IsExecutable: false, Info: []byte("stat-b"),
				}),
			},
		},
		{
			Dirname: []byte("b"),
			Entries: []Entry{
				oneTreeEntry("b", "c", "file-c-id", TreeState{
					Minikind: KindSymlink, Fingerprint: []byte("target"), Size: 0, IsExecutable: false, Info: []byte("stat-c"),
				}),
			},
		},
	}

	blob := Serialize(blocks)
	parsed, err := Parse(blob, 1, "teststate")
	require.NoError(t, err)

	require.Equal(t, len(blocks), len(parsed))
	for i, b := range blocks {
		assert.Equal(t, string(b.Dirname), string(parsed[i].Dirname))
		require.Equal(t, len(b.Entries), len(parsed[i].Entries))
		for j, e := range b.Entries {
			pe := parsed[i].Entries[j]
			assert.Equal(t, string(e.Basename), string(pe.Basename))
			assert.Equal(t, string(e.FileID), string(pe.FileID))
			require.Equal(t, len(e.TreeStates), len(pe.TreeStates))
			assert.Equal(t, e.TreeStates[0].Minikind, pe.TreeStates[0].Minikind)
			assert.Equal(t, e.TreeStates[0].Size, pe.TreeStates[0].Size)
			assert.Equal(t, string(e.TreeStates[0].Fingerprint), string(pe.TreeStates[0].Fingerprint))
		}
	}

	assert.Equal(t, blob, Serialize(parsed))
}

func TestSerializeOmitsDirnameOnContinuationRecords(t *testing.T) {
	blocks := []Dirblock{{
		Dirname: []byte("dir"),
		Entries: []Entry{
			oneTreeEntry("dir", "a", "id-a", TreeState{Minikind: KindFile, Size: 1, Info: []byte("s1")}),
			oneTreeEntry("dir", "b", "id-b", TreeState{Minikind: KindFile, Size: 2, Info: []byte("s2")}),
		},
	}}
	blob := Serialize(blocks)

	lines := 0
	for _, b := range blob {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
	assert.Contains(t, string(blob), "dir\x00a\x00id-a")
	assert.Contains(t, string(blob), "\nb\x00id-b")
	assert.NotContains(t, string(blob), "dir\x00b\x00id-b")
}

func TestParseRejectsMissingTrailingNewline(t *testing.T) {
	blocks := []Dirblock{{Dirname: []byte(""), Entries: []Entry{
		oneTreeEntry("", "a", "id", TreeState{Minikind: KindFile, Size: 1, Info: []byte("s")}),
	}}}
	blob := Serialize(blocks)
	_, err := Parse(blob[:len(blob)-1], 1, "teststate")
	require.Error(t, err)
}

func TestParseRejectsBadFieldCount(t *testing.T) {
	_, err := Parse([]byte("a\x00b\n"), 1, "teststate")
	require.Error(t, err)
}

func TestParseRejectsInvalidMinikind(t *testing.T) {
	bad := []byte("\x00a\x00id\x00Z\x00\x00012\x00n\x00stat\n")
	_, err := Parse(bad, 1, "teststate")
	require.Error(t, err)
}

func TestParseRejectsBadIsExecutable(t *testing.T) {
	bad := []byte("\x00a\x00id\x00f\x00\x00012\x00x\x00stat\n")
	_, err := Parse(bad, 1, "teststate")
	require.Error(t, err)
}

func TestPackStatIsStableAndHasNoTrailingNewline(t *testing.T) {
	info := StatInfo{Size: 100, MtimeS: 200, CtimeS: 300, Dev: 1, Ino: 2, Mode: 0o100644}
	a := PackStat(info)
	b := PackStat(info)
	assert.Equal(t, a, b)
	assert.NotContains(t, a, "\n")
}

func TestPackStatDiffersOnAnyFieldChange(t *testing.T) {
	base := StatInfo{Size: 1, MtimeS: 2, CtimeS: 3, Dev: 4, Ino: 5, Mode: 6}
	changed := base
	changed.Size = 2
	assert.NotEqual(t, PackStat(base), PackStat(changed))
}

func TestUpdateEntryIgnoresUntrackedKind(t *testing.T) {
	entry := oneTreeEntry("", "a", "id", TreeState{Minikind: KindFile})
	ts, err := UpdateEntry(&entry, 0, Stat{Kind: KindAbsent}, 1000,
		func() ([]byte, error) { return nil, nil }, func() (string, error) { return "", nil }, nil)
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestUpdateEntrySameFootprintReusesFingerprint(t *testing.T) {
	info := StatInfo{Size: 5, MtimeS: 100, CtimeS: 100, Mode: 0o100644}
	packed := PackStat(info)
	entry := oneTreeEntry("", "a", "id", TreeState{
		Minikind: KindFile, Fingerprint: []byte("cached-sha1"), Size: 5, Info: []byte(packed),
	})

	called := false
	ts, err := UpdateEntry(&entry, 0, Stat{Kind: KindFile, Info: info}, 1000,
		func() ([]byte, error) { called = true; return []byte("fresh"), nil },
		func() (string, error) { return "", nil }, nil)
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.False(t, called)
	assert.Equal(t, []byte("cached-sha1"), ts.Fingerprint)
}

func TestUpdateEntryDirectoryAlwaysReportsNoFingerprint(t *testing.T) {
	info := StatInfo{Size: 0, MtimeS: 100, CtimeS: 100}
	packed := PackStat(info)
	entry := oneTreeEntry("", "d", "id", TreeState{Minikind: KindDirectory, Info: []byte(packed)})

	ts, err := UpdateEntry(&entry, 0, Stat{Kind: KindDirectory, Info: info}, 1000,
		nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Nil(t, ts.Fingerprint)
}

func TestUpdateEntryRecomputesOnFootprintMismatch(t *testing.T) {
	oldInfo := StatInfo{Size: 5, MtimeS: 50, CtimeS: 50, Mode: 0o100644}
	entry := oneTreeEntry("", "a", "id", TreeState{
		Minikind: KindFile, Fingerprint: []byte("stale"), Size: 5, Info: []byte(PackStat(oldInfo)),
	})

	newInfo := StatInfo{Size: 6, MtimeS: 60, CtimeS: 60, Mode: 0o100644}
	ts, err := UpdateEntry(&entry, 0, Stat{Kind: KindFile, Info: newInfo}, 1000,
		func() ([]byte, error) { return []byte("fresh-sha1"), nil },
		func() (string, error) { return "", nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh-sha1"), ts.Fingerprint)
	assert.Equal(t, uint32(6), ts.Size)
}

func TestUpdateEntryWithinCutoffStoresNullFingerprint(t *testing.T) {
	oldInfo := StatInfo{Size: 5, MtimeS: 50, CtimeS: 50, Mode: 0o100644}
	entry := oneTreeEntry("", "a", "id", TreeState{
		Minikind: KindFile, Fingerprint: []byte("stale"), Size: 5, Info: []byte(PackStat(oldInfo)),
	})

	newInfo := StatInfo{Size: 6, MtimeS: 1000, CtimeS: 1000, Mode: 0o100644}
	ts, err := UpdateEntry(&entry, 0, Stat{Kind: KindFile, Info: newInfo}, 1000,
		func() ([]byte, error) { return []byte("fresh-sha1"), nil },
		func() (string, error) { return "", nil }, nil)
	require.NoError(t, err)
	assert.Nil(t, ts.Fingerprint)
}

func TestUpdateEntryCallsEnsureDirblockOnKindTransition(t *testing.T) {
	entry := oneTreeEntry("", "a", "id", TreeState{Minikind: KindFile})
	var seen []byte
	newInfo := StatInfo{Size: 0, MtimeS: 50, CtimeS: 50}
	_, err := UpdateEntry(&entry, 0, Stat{Kind: KindDirectory, Info: newInfo}, 1000,
		nil, nil, func(dirPath []byte) { seen = dirPath })
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), seen)
}

func TestUpdateEntrySymlinkUsesLinkTarget(t *testing.T) {
	entry := oneTreeEntry("", "l", "id", TreeState{Minikind: KindFile})
	newInfo := StatInfo{MtimeS: 50, CtimeS: 50}
	ts, err := UpdateEntry(&entry, 0, Stat{Kind: KindSymlink, Info: newInfo}, 1000,
		nil, func() (string, error) { return "../target", nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("../target"), ts.Fingerprint)
}
