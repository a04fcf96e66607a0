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


package uniterare

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/uniterare/ai"
	"github.com/poiesic/uniterare/ai/openai"
	"github.com/poiesic/uniterare/config"
	"github.com/poiesic/uniterare/enrich"
	"github.com/poiesic/uniterare/search"
	"github.com/poiesic/uniterare/storage"
	"github.com/poiesic/uniterare/storage/badger"
	"github.com/poiesic/uniterare/storage/sqlstore"
)

// Database bundles the record store selected by configuration with the
// text generation provider.
type Database struct {
	config     *config.Config
	repository storage.RecordRepository
	sql        *sqlstore.Repository
	backend    *badger.Backend
	provider   ai.AIProvider
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
}

// WithAIConfig overrides the generator settings derived from the config.
func WithAIConfig(aiConfig *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = aiConfig
	}
}

// WithProvider uses provider instead of building an OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// NewDatabase opens the store named by cfg.Store and creates the provider.
func NewDatabase(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	db := &Database{
		config: cfg,
		logger: slog.Default().With("component", "database", "store", cfg.Store),
	}

	// Leave headroom over the worker count for reads outside the pipeline.
	poolOpt := sqlstore.WithMaxOpenConns(cfg.MaxWorkers + 2)

	var err error
	switch cfg.Store {
	case config.StorePostgres:
		db.logger.Debug("connecting", "dsn", cfg.MaskedDSN())
		db.sql, err = sqlstore.OpenPostgres(ctx, cfg.DSN(), poolOpt)
		if err == nil {
			db.repository = db.sql
		}
	case config.StoreSQLite:
		db.sql, err = sqlstore.OpenSQLite(ctx, cfg.SQLitePath, poolOpt)
		if err == nil {
			db.repository = db.sql
		}
	case config.StoreBadger:
		db.backend, err = badger.OpenBackend(cfg.BadgerPath, false)
		if err == nil {
			db.repository, err = badger.NewRecordRepository(db.backend)
		}
	default:
		err = fmt.Errorf("%w: %q", storage.ErrUnsupportedDialect, cfg.Store)
	}
	if err != nil {
		db.closeStore()
		return nil, err
	}

	db.provider = options.provider
	if db.provider == nil {
		aiConfig := options.aiConfig
		if aiConfig == nil {
			aiConfig = cfg.AIConfig()
		}
		db.provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			db.closeStore()
			return nil, err
		}
	}

	return db, nil
}

// EnsureSchema creates the diseases table on relational stores.
// The badger store needs no schema.
func (db *Database) EnsureSchema(ctx context.Context) error {
	if db.sql == nil {
		return nil
	}
	return db.sql.EnsureSchema(ctx)
}

// Repository returns the record store.
func (db *Database) Repository() storage.RecordRepository {
	return db.repository
}

// NewPipeline creates an enrichment pipeline sized and retried per the config.
// opts are applied after the config-derived options.
func (db *Database) NewPipeline(opts ...enrich.Option) (*enrich.Pipeline, error) {
	base := []enrich.Option{
		enrich.WithPoolSize(db.config.MaxWorkers),
		enrich.WithMaxAttempts(db.config.MaxAttempts),
		enrich.WithRetryDelay(db.config.RetryDelay),
	}
	return enrich.NewPipeline(db.repository, db.provider.Generator(), append(base, opts...)...)
}

// NewSuggester creates a name suggester over the store.
func (db *Database) NewSuggester(opts ...search.Option) (*search.Suggester, error) {
	return search.NewSuggester(db.repository, opts...)
}

func (db *Database) closeStore() error {
	var err error
	if db.repository != nil {
		err = db.repository.Close()
	}
	if db.backend != nil {
		if backendErr := db.backend.Close(); backendErr != nil {
			db.logger.Error("error closing backend storage", "err", backendErr)
			err = backendErr
		}
	}
	return err
}

// Close closes the provider and the store.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.closeStore(); err != nil {
		db.logger.Error("error closing record store", "err", err)
		return err
	}
	return nil
}
