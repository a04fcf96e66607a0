// Copyright 2025 Poiesic Systems
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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/uniterare/core"
)

// Key prefixes for different data types
const (
	diseaseRecordPrefix = "disrec"
	diseaseNamePrefix   = "disnam"
)

// makeRecordKey generates a key for a disease record by ID.
// Format: prefix:id (big endian so keys sort by ID)
func makeRecordKey(id core.ID) []byte {
	prefix := diseaseRecordPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// recordKeyPrefix returns the prefix shared by all record keys.
func recordKeyPrefix() []byte {
	return []byte(diseaseRecordPrefix + ":")
}

// makeNameKey generates a key for the case-insensitive name index.
// Format: prefix:normalized-name
func makeNameKey(name string) []byte {
	prefix := diseaseNamePrefix + ":"
	normalized := core.NormalizeName(name)
	buf := make([]byte, len(prefix)+len(normalized))
	offset := copy(buf, prefix)
	copy(buf[offset:], normalized)
	return buf
}

// nameKeyPrefix returns the prefix shared by all name index keys.
func nameKeyPrefix() []byte {
	return []byte(diseaseNamePrefix + ":")
}
