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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/retry"
	"github.com/poiesic/uniterare/storage"
)

// sqliteDriver is go-sqlite3 with foldFunc registered on every connection.
// SQLite's built-in LOWER only folds ASCII.
const sqliteDriver = "sqlite3_fold"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(foldFunc, strings.ToLower, true)
		},
	})
}

// Repository implements storage.RecordRepository on database/sql.
type Repository struct {
	db      *sql.DB
	dialect string
	q       queries
	logger  *slog.Logger
}

var _ storage.RecordRepository = (*Repository)(nil)

// Option configures how a database handle is opened.
type Option func(*options)

type options struct {
	maxOpenConns int
	connect      retry.Policy
	pingTimeout  time.Duration
}

func defaultOptions() *options {
	return &options{
		maxOpenConns: 25,
		connect: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    8 * time.Second,
		},
		pingTimeout: 5 * time.Second,
	}
}

// WithMaxOpenConns caps the connection pool. Size it to at least the
// enrichment worker count so sessions never wait on each other.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// WithConnectRetry sets how the initial ping is retried.
func WithConnectRetry(p retry.Policy) Option {
	return func(o *options) {
		o.connect = p
	}
}

// New wraps an open database handle. dialect is DialectPostgres or DialectSQLite.
// SQLite handles must come from OpenSQLite so name matching can fold case.
func New(db *sql.DB, dialect string) (*Repository, error) {
	if db == nil {
		return nil, errors.New("sql database required")
	}
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnsupportedDialect, dialect)
	}
	return &Repository{
		db:      db,
		dialect: dialect,
		q:       newQueries(dialect),
		logger:  slog.Default().With("component", "sqlstore", "dialect", dialect),
	}, nil
}

// OpenPostgres connects to PostgreSQL with lib/pq, pinging with backoff
// until the server answers.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Repository, error) {
	return open(ctx, "postgres", dsn, DialectPostgres, opts...)
}

// OpenSQLite opens (creating if needed) a SQLite database file.
// WAL mode and a busy timeout let concurrent workers write without
// immediate lock errors.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Repository, error) {
	return open(ctx, sqliteDriver, sqliteDSN(path), DialectSQLite, opts...)
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + strings.TrimPrefix(path, "file:") + sep + "_busy_timeout=5000&_journal_mode=WAL"
}

func open(ctx context.Context, driver, dsn, dialect string, opts ...Option) (*Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", storage.ErrConnectionFailed, driver, err)
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger := slog.Default().With("component", "sqlstore", "dialect", dialect)
	attempt := 0
	err = o.connect.Do(ctx, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, o.pingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("database ping failed", "attempt", attempt, "err", err)
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailed, err)
	}

	logger.Debug("connected to database", "attempts", attempt)
	return New(db, dialect)
}

// DB returns the underlying database handle.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Dialect returns the SQL dialect name.
func (r *Repository) Dialect() string {
	return r.dialect
}

// Close closes the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// AddRecords inserts records whose names are not already present, in one transaction.
func (r *Repository) AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var added []*core.Record
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return nil, err
		}
		record.Name = strings.TrimSpace(record.Name)

		key := core.NormalizeName(record.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, err := r.findByName(ctx, tx, record.Name); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}

		id, err := r.insert(ctx, tx, record)
		if err != nil {
			return nil, fmt.Errorf("insert %q: %w", record.Name, err)
		}
		record.Id = id
		added = append(added, record)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return added, nil
}

func (r *Repository) insert(ctx context.Context, tx *sql.Tx, record *core.Record) (core.ID, error) {
	if r.dialect == DialectPostgres {
		query, args, err := r.q.insertRecord(record, true)
		if err != nil {
			return 0, err
		}
		var id int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return core.ID(id), nil
	}

	query, args, err := r.q.insertRecord(record, false)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return core.ID(id), nil
}

// GetRecord retrieves a single record by ID.
func (r *Repository) GetRecord(ctx context.Context, id core.ID) (*core.Record, error) {
	query, args, err := r.q.getRecord(id)
	if err != nil {
		return nil, err
	}
	return scanRecord(r.db.QueryRowContext(ctx, query, args...))
}

// FindByName retrieves the lowest-id record whose name matches, ignoring case.
func (r *Repository) FindByName(ctx context.Context, name string) (*core.Record, error) {
	return r.findByName(ctx, r.db, name)
}

// querier is the subset of *sql.DB, *sql.Tx and *sql.Conn used for reads.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) findByName(ctx context.Context, q querier, name string) (*core.Record, error) {
	query, args, err := r.q.findByName(name)
	if err != nil {
		return nil, err
	}
	return scanRecord(q.QueryRowContext(ctx, query, args...))
}

// SuggestNames returns distinct names containing query, ignoring case.
func (r *Repository) SuggestNames(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	sqlText, args, err := r.q.suggestNames(query, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FetchPending selects every record with a NULL or empty description.
func (r *Repository) FetchPending(ctx context.Context) ([]*core.Record, error) {
	query, args, err := r.q.fetchPending()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*core.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("fetched pending records", "count", len(records))
	return records, nil
}

// UpdateDescription runs a single-row UPDATE on a pooled connection.
func (r *Repository) UpdateDescription(ctx context.Context, id core.ID, description string) error {
	return r.updateDescription(ctx, r.db, id, description)
}

// execer is the subset of *sql.DB, *sql.Tx and *sql.Conn used for writes.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) updateDescription(ctx context.Context, e execer, id core.ID, description string) error {
	query, args, err := r.q.updateDescription(id, description)
	if err != nil {
		return err
	}

	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", storage.ErrNotFound, id)
	}
	return nil
}

// OpenSession checks a dedicated connection out of the pool.
func (r *Repository) OpenSession(ctx context.Context) (storage.Session, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrConnectionFailed, err)
	}
	return &session{repo: r, conn: conn}, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*core.Record, error) {
	var (
		id          int64
		name        string
		description sql.NullString
	)
	if err := s.Scan(&id, &name, &description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &core.Record{
		Id:          core.ID(id),
		Name:        name,
		Description: description.String,
	}, nil
}
