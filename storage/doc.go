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

// Package storage provides the storage abstraction for the disease reference table.
//
// RecordRepository covers import, lookup, the pending-record snapshot and the
// per-record description write. Session is the short-lived handle a worker
// holds around that single write.
//
// # Backends
//
//   - storage/sqlstore: PostgreSQL (lib/pq) and SQLite (go-sqlite3), queries built with goqu
//   - storage/badger: embedded BadgerDB, values encoded with mus-go
//
// Public constructors return concrete repository types; callers hold them as
// storage.RecordRepository.
//
// # Usage
//
//	repo, err := sqlstore.OpenPostgres(ctx, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	pending, err := repo.FetchPending(ctx)
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
package storage
