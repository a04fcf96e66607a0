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

package sqlstore

import (
	"context"
	"fmt"
)

// The table layout the seeder expects. Only created when absent;
// existing tables are never altered.
const (
	postgresSchema = `CREATE TABLE IF NOT EXISTS diseases (
	id SERIAL PRIMARY KEY,
	disease VARCHAR(255) NOT NULL,
	description TEXT
)`

	sqliteSchema = `CREATE TABLE IF NOT EXISTS diseases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	disease VARCHAR(255) NOT NULL,
	description TEXT
)`
)

// EnsureSchema creates the diseases table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := postgresSchema
	if r.dialect == DialectSQLite {
		ddl = sqliteSchema
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create diseases table: %w", err)
	}
	return nil
}
