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

// Stat is the filesystem observation UpdateEntry reconciles against
// an entry's saved working-tree TreeState. Kind mirrors Minikind but
// is restricted to what a stat() call can actually report.
type Stat struct {
	Kind Minikind // KindFile, KindDirectory, or KindSymlink
	Info StatInfo
}

// SHA1Provider computes a file's content hash on demand. It is only
// invoked when UpdateEntry cannot trust the previously recorded
// fingerprint.
type SHA1Provider func() ([]byte, error)

// LinkTarget reads a symlink's target on demand.
type LinkTarget func() (string, error)

// UpdateEntry reconciles treeIdx's TreeState within entry against a
// fresh Stat. It returns the updated TreeState, or nil if stat's kind
// isn't one UpdateEntry tracks (file, directory or symlink) and the
// entry is therefore left untouched.
//
// cutoffTime bounds which fingerprints may be trusted without
// rehashing: a fingerprint computed from a stat whose mtime or ctime
// is not strictly older than cutoffTime is stored as a null
// fingerprint, forcing the next call to recompute it. ensureDirblock,
// if non-nil, is called with dirPath whenever the entry's kind
// transitions to or from KindDirectory, so the caller can materialize
// or drop the corresponding child dirblock.
func UpdateEntry(
	entry *Entry,
	treeIdx int,
	stat Stat,
	cutoffTime uint32,
	sha1 SHA1Provider,
	linkTarget LinkTarget,
	ensureDirblock func(dirPath []byte),
) (*TreeState, error) {
	switch stat.Kind {
	case KindFile, KindDirectory, KindSymlink:
	default:
		return nil, nil
	}

	saved := &entry.TreeStates[treeIdx]
	packed := PackStat(stat.Info)
	sameFootprint := saved.Minikind == stat.Kind && string(saved.Info) == packed

	if sameFootprint {
		if stat.Kind == KindDirectory {
			return &TreeState{
				Minikind:     KindDirectory,
				Fingerprint:  nil,
				Size:         0,
				IsExecutable: false,
				Info:         []byte(packed),
			}, nil
		}
		result := *saved
		result.Info = []byte(packed)
		return &result, nil
	}

	wasDirectory := saved.Minikind == KindDirectory
	isDirectory := stat.Kind == KindDirectory
	if ensureDirblock != nil && wasDirectory != isDirectory {
		ensureDirblock(entryPath(entry))
	}

	result := TreeState{
		Minikind: stat.Kind,
		Size:     stat.Info.Size,
		Info:     []byte(packed),
	}

	switch stat.Kind {
	case KindDirectory:
		result.Fingerprint = nil
		result.Size = 0
	case KindFile:
		digest, err := sha1()
		if err != nil {
			return nil, err
		}
		result.Fingerprint = trustFingerprint(digest, stat.Info, cutoffTime)
		result.IsExecutable = stat.Info.Mode&0o111 != 0
	case KindSymlink:
		target, err := linkTarget()
		if err != nil {
			return nil, err
		}
		result.Fingerprint = trustFingerprint([]byte(target), stat.Info, cutoffTime)
	}

	*saved = result
	return &result, nil
}

// trustFingerprint returns fp unchanged when the observation it was
// derived from is old enough to be stable (both mtime and ctime
// strictly precede cutoffTime), and nil otherwise, forcing the next
// comparison to recompute it rather than trust a value observed in
// the same window it could still be concurrently modified.
func trustFingerprint(fp []byte, info StatInfo, cutoffTime uint32) []byte {
	if info.MtimeS < cutoffTime && info.CtimeS < cutoffTime {
		return fp
	}
	return nil
}

func entryPath(e *Entry) []byte {
	if len(e.Dirname) == 0 {
		return append([]byte(nil), e.Basename...)
	}
	out := make([]byte, 0, len(e.Dirname)+1+len(e.Basename))
	out = append(out, e.Dirname...)
	out = append(out, '/')
	out = append(out, e.Basename...)
	return out
}
