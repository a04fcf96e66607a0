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
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/poiesic/uniterare/core"
)

// Table and column names of the disease reference relation.
const (
	tableDiseases     = "diseases"
	columnID          = "id"
	columnName        = "disease"
	columnDescription = "description"
)

// Dialect names accepted by New. They double as goqu dialect names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// foldFunc is the SQL function OpenSQLite registers for Unicode case folding.
const foldFunc = "fold_name"

// queries builds the SQL statements for one dialect.
type queries struct {
	d    goqu.DialectWrapper
	fold string
}

func newQueries(dialect string) queries {
	fold := "LOWER"
	if dialect == DialectSQLite {
		fold = foldFunc
	}
	return queries{d: goqu.Dialect(dialect), fold: fold}
}

// foldedName is the name column lowercased with Unicode case mapping.
func (q queries) foldedName() exp.SQLFunctionExpression {
	return goqu.Func(q.fold, goqu.C(columnName))
}

func (q queries) selectRecords() *goqu.SelectDataset {
	return q.d.From(tableDiseases).
		Select(columnID, columnName, columnDescription).
		Prepared(true)
}

func (q queries) fetchPending() (string, []any, error) {
	return q.selectRecords().
		Where(goqu.Or(
			goqu.C(columnDescription).IsNull(),
			goqu.C(columnDescription).Eq(""),
		)).
		Order(goqu.C(columnID).Asc()).
		ToSQL()
}

func (q queries) getRecord(id core.ID) (string, []any, error) {
	return q.selectRecords().
		Where(goqu.C(columnID).Eq(int64(id))).
		ToSQL()
}

func (q queries) findByName(name string) (string, []any, error) {
	return q.selectRecords().
		Where(q.foldedName().Eq(core.NormalizeName(name))).
		Order(goqu.C(columnID).Asc()).
		Limit(1).
		ToSQL()
}

func (q queries) suggestNames(query string, limit int) (string, []any, error) {
	pattern := "%" + escapeLike(core.NormalizeName(query)) + "%"
	return q.d.From(tableDiseases).
		Select(goqu.C(columnName)).
		Distinct().
		Where(goqu.L(`? LIKE ? ESCAPE '\'`, q.foldedName(), pattern)).
		Order(goqu.C(columnName).Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}

// insertRecord builds the insert. returning adds RETURNING id for dialects
// that support it.
func (q queries) insertRecord(record *core.Record, returning bool) (string, []any, error) {
	ds := q.d.Insert(tableDiseases).
		Rows(goqu.Record{
			columnName:        record.Name,
			columnDescription: record.Description,
		}).
		Prepared(true)
	if returning {
		ds = ds.Returning(columnID)
	}
	return ds.ToSQL()
}

func (q queries) updateDescription(id core.ID, description string) (string, []any, error) {
	return q.d.Update(tableDiseases).
		Set(goqu.Record{columnDescription: description}).
		Where(goqu.C(columnID).Eq(int64(id))).
		Prepared(true).
		ToSQL()
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
