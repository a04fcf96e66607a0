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

package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLength matches the width of the disease column.
const MaxNameLength = 255

// ValidateRecord validates a Record before it is imported.
//
// Validation rules:
//   - Name must contain something other than whitespace
//   - Name must fit in MaxNameLength characters
//
// NOT validated:
//   - Description (empty means pending)
//   - ID (0 is valid until the store assigns one)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if strings.TrimSpace(record.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyName)
	}

	if utf8.RuneCountInString(record.Name) > MaxNameLength {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrNameTooLong)
	}

	return nil
}
