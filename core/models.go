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

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is an opaque identifier for a disease record.
// It is either assigned by a database sequence or derived from the record name.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// NormalizeName folds a disease name for case-insensitive comparison.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IDFromName derives the record ID used by stores without a sequence.
// Names differing only in case or surrounding whitespace map to the same ID.
func IDFromName(name string) ID {
	return IDFromContent(NormalizeName(name))
}

// Record is a single row of the disease reference table.
// Description is empty until the enrichment pipeline fills it in.
type Record struct {
	Id          ID
	Name        string
	Description string
}

// IsPending reports whether the record still needs a generated description.
// A NULL description is read as the empty string, so both count as pending.
func (r *Record) IsPending() bool {
	return r.Description == ""
}

// GenerationRequest pairs a record with the prompt sent to the generator.
type GenerationRequest struct {
	RecordId ID
	Name     string
	Prompt   string
}

// GenerationStatus is the outcome of processing one record.
type GenerationStatus int

const (
	// StatusSuccess means the description was generated and stored.
	StatusSuccess GenerationStatus = iota + 1
	// StatusFailure means some stage failed and the record is still pending.
	StatusFailure
)

// String returns a lowercase label suitable for logs and metric labels.
func (s GenerationStatus) String() string {
	switch s {
	case StatusSuccess:
		return "stored"
	case StatusFailure:
		return "failed"
	default:
		return "unknown"
	}
}

// GenerationResult is the per-record outcome reported by the pipeline.
type GenerationResult struct {
	RecordId ID
	Name     string
	Status   GenerationStatus
	Content  string // post-processed description, empty on failure
	Err      error  // set when Status is StatusFailure
}

// String renders the one-line report for the result.
func (r GenerationResult) String() string {
	if r.Status == StatusSuccess {
		return "Stored: " + r.Name
	}
	return fmt.Sprintf("Failed: %s — %v", r.Name, r.Err)
}
