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
	"encoding/base64"
	"encoding/binary"
)

// StatInfo is the subset of a filesystem stat result that PackStat
// folds into a fingerprint footprint.
type StatInfo struct {
	Size   uint32
	MtimeS uint32
	CtimeS uint32
	Dev    uint32
	Ino    uint32
	Mode   uint32
}

// PackStat renders st as a base64 string with any trailing newline
// stripped, matching the six big-endian uint32 fields packed by the
// reference footprint format.
func PackStat(st StatInfo) string {
	var raw [24]byte
	binary.BigEndian.PutUint32(raw[0:4], st.Size)
	binary.BigEndian.PutUint32(raw[4:8], st.MtimeS)
	binary.BigEndian.PutUint32(raw[8:12], st.CtimeS)
	binary.BigEndian.PutUint32(raw[12:16], st.Dev)
	binary.BigEndian.PutUint32(raw[16:20], st.Ino)
	binary.BigEndian.PutUint32(raw[20:24], st.Mode)

	encoded := base64.StdEncoding.EncodeToString(raw[:])
	return string(bytes.TrimRight([]byte(encoded), "\n"))
}
