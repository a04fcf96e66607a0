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

package storage

import (
	"context"

	"github.com/poiesic/uniterare/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// Session is a short-lived write handle held by one worker.
// It is acquired immediately before a write and closed immediately after,
// so idle workers never pin a connection.
type Session interface {
	// UpdateDescription sets the description of exactly the record with id.
	// Returns ErrNotFound if no such record exists.
	UpdateDescription(ctx context.Context, id core.ID, description string) error

	// Close releases the handle. It is safe to call more than once.
	Close() error
}

// RecordRepository provides operations for the disease reference table.
type RecordRepository interface {
	Repository

	// AddRecords inserts records whose names are not already present.
	// Names are compared case-insensitively after trimming.
	// Returns only the newly inserted records, with IDs populated.
	AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error)

	// GetRecord retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetRecord(ctx context.Context, id core.ID) (*core.Record, error)

	// FindByName retrieves a record by name, ignoring case.
	// Returns ErrNotFound if no record matches.
	FindByName(ctx context.Context, name string) (*core.Record, error)

	// SuggestNames returns up to limit distinct names containing query,
	// ignoring case, in ascending order.
	SuggestNames(ctx context.Context, query string, limit int) ([]string, error)

	// FetchPending returns every record whose description is NULL or empty.
	// The result is a snapshot taken with a single query; order is unspecified.
	FetchPending(ctx context.Context) ([]*core.Record, error)

	// UpdateDescription sets the description of the record with id.
	// Last write wins. Returns ErrNotFound if no such record exists.
	UpdateDescription(ctx context.Context, id core.ID, description string) error

	// OpenSession acquires a dedicated write handle.
	OpenSession(ctx context.Context) (Session, error)
}
