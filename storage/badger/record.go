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
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/storage"
)

// RecordRepository implements storage.RecordRepository for BadgerDB.
// Record IDs are derived from the normalized name, so re-importing a name is a no-op.
type RecordRepository struct {
	backend *Backend
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	if backend == nil {
		return nil, errors.New("badger backend required")
	}
	return &RecordRepository{
		backend: backend,
	}, nil
}

// Close releases resources. The backend is owned by the caller.
func (r *RecordRepository) Close() error {
	return nil
}

// AddRecords adds records whose names are not yet indexed.
func (r *RecordRepository) AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error) {
	var added []*core.Record
	err := r.backend.Update(func(tx *badger.Txn) error {
		added = added[:0]
		seen := make(map[string]struct{}, len(records))
		for _, record := range records {
			if err := core.ValidateRecord(record); err != nil {
				return err
			}
			record.Name = strings.TrimSpace(record.Name)

			nameKey := makeNameKey(record.Name)
			if _, dup := seen[string(nameKey)]; dup {
				continue
			}
			seen[string(nameKey)] = struct{}{}

			_, err := tx.Get(nameKey)
			if err == nil {
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			record.Id = core.IDFromName(record.Name)
			if err := tx.Set(makeRecordKey(record.Id), storage.MarshalRecord(record)); err != nil {
				return err
			}
			if err := tx.Set(nameKey, storage.MarshalID(record.Id)); err != nil {
				return err
			}
			added = append(added, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// GetRecord retrieves a single record by ID.
func (r *RecordRepository) GetRecord(ctx context.Context, id core.ID) (*core.Record, error) {
	var result *core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRecord(tx, makeRecordKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindByName looks up the name index and returns the matching record.
func (r *RecordRepository) FindByName(ctx context.Context, name string) (*core.Record, error) {
	var result *core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeNameKey(name))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id core.ID
		err = item.Value(func(val []byte) error {
			id, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readRecord(tx, makeRecordKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// SuggestNames scans the name index for names containing query.
func (r *RecordRepository) SuggestNames(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	needle := core.NormalizeName(query)

	var names []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nameKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefixLen := len(opts.Prefix)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !bytes.Contains(item.Key()[prefixLen:], []byte(needle)) {
				continue
			}

			var id core.ID
			err := item.Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			record, err := readRecord(tx, makeRecordKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				names = append(names, record.Name)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.Sort(names)
	names = slices.Compact(names)
	if len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

// FetchPending scans all records in one read transaction.
func (r *RecordRepository) FetchPending(ctx context.Context) ([]*core.Record, error) {
	var results []*core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			if record != nil && record.IsPending() {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateDescription rewrites the record with the new description.
func (r *RecordRepository) UpdateDescription(ctx context.Context, id core.ID, description string) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		key := makeRecordKey(id)
		record, err := readRecord(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		record.Description = description
		return tx.Set(key, storage.MarshalRecord(record))
	})
}

// OpenSession returns a write handle. Badger has no connection to pin, so the
// session only guards against use after Close.
func (r *RecordRepository) OpenSession(ctx context.Context) (storage.Session, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &session{repo: r}, nil
}

// Helper methods

// readRecord reads a record from the transaction.
// Returns nil, nil if the key is absent.
func readRecord(tx *badger.Txn, key []byte) (*core.Record, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.Record
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalRecord(val)
		return err
	})
	return record, err
}
