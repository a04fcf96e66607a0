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


// Package importer loads record names from a spreadsheet export into a store.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/storage"
)

// DefaultColumn is the header of the name column in the source sheets.
const DefaultColumn = "Disease Name"

// DefaultBatchSize is the number of records added per store call.
const DefaultBatchSize = 500

var (
	// ErrColumnNotFound is returned when the header lacks the name column.
	ErrColumnNotFound = errors.New("name column not found")

	// ErrNoHeader is returned for empty input.
	ErrNoHeader = errors.New("input has no header row")
)

// ReadNames returns the distinct, non-blank values of column in CSV input,
// trimmed and in first-seen order. Duplicates are detected case-insensitively.
func ReadNames(r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	return collectNames(func() ([]string, error) {
		row, err := reader.Read()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read row: %w", err)
		}
		return row, err
	}, column)
}

// ReadSheetNames is ReadNames for an Excel workbook. An empty sheet selects
// the first sheet in the workbook.
func ReadSheetNames(r io.Reader, sheet, column string) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	next := 0
	return collectNames(func() ([]string, error) {
		if next >= len(rows) {
			return nil, io.EOF
		}
		next++
		return rows[next-1], nil
	}, column)
}

// collectNames consumes rows until next returns io.EOF. The first row is the header.
func collectNames(next func() ([]string, error), column string) ([]string, error) {
	header, err := next()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == column {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrColumnNotFound, column, strings.Join(header, ", "))
	}

	var names []string
	seen := make(map[string]struct{})
	for {
		row, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if index >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[index])
		if name == "" {
			continue
		}
		key := core.NormalizeName(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// Result counts what an import did.
type Result struct {
	Read    int
	Added   int
	Skipped int
}

// Import adds a pending record for every name not already stored,
// batchSize names per store call. Names longer than core.MaxNameLength
// are skipped and logged.
func Import(ctx context.Context, repository storage.RecordRepository, names []string, batchSize int) (*Result, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	logger := slog.Default().With("component", "importer")
	result := &Result{Read: len(names)}

	batch := make([]*core.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		added, err := repository.AddRecords(ctx, batch...)
		if err != nil {
			return err
		}
		result.Added += len(added)
		result.Skipped += len(batch) - len(added)
		logger.Debug("imported batch", "size", len(batch), "added", len(added))
		batch = batch[:0]
		return nil
	}

	for _, name := range names {
		record := &core.Record{Name: name}
		if err := core.ValidateRecord(record); err != nil {
			logger.Warn("skipping invalid name", "name", name, "err", err)
			result.Skipped++
			continue
		}
		batch = append(batch, record)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	logger.Info("import finished", "read", result.Read, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}
