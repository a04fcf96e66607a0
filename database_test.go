package uniterare

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/uniterare/ai/mock"
	"github.com/poiesic/uniterare/config"
	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/enrich"
	"github.com/poiesic/uniterare/storage"
)

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Store:       store,
		SQLitePath:  filepath.Join(dir, "diseases.db"),
		BadgerPath:  filepath.Join(dir, "diseases.badger"),
		AIHost:      "http://127.0.0.1:1/v1",
		AIModel:     "test-model",
		AITimeout:   time.Second,
		MaxWorkers:  3,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	}
}

func TestNewDatabase(t *testing.T) {
	for _, store := range []string{config.StoreSQLite, config.StoreBadger} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			db, err := NewDatabase(ctx, testConfig(t, store))
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, db.EnsureSchema(ctx))
			assert.NotNil(t, db.Repository())
			assert.NotNil(t, db.provider)
			assert.NotNil(t, db.logger)
		})
	}

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t, "mysql")
		db, err := NewDatabase(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("badger path is a file", func(t *testing.T) {
		cfg := testConfig(t, config.StoreBadger)
		require.NoError(t, os.WriteFile(cfg.BadgerPath, []byte("test"), 0644))
		db, err := NewDatabase(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	provider := mock.NewMockProvider()
	db, err := NewDatabase(context.Background(), testConfig(t, config.StoreBadger), WithProvider(provider))
	require.NoError(t, err)

	assert.NoError(t, db.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())
}

func TestDatabase_EndToEnd(t *testing.T) {
	for _, store := range []string{config.StoreSQLite, config.StoreBadger} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			provider := mock.NewMockProvider()
			db, err := NewDatabase(ctx, testConfig(t, store), WithProvider(provider))
			require.NoError(t, err)
			defer db.Close()
			require.NoError(t, db.EnsureSchema(ctx))

			_, err = db.Repository().AddRecords(ctx,
				&core.Record{Name: "Fabry disease"},
				&core.Record{Name: "Gaucher disease"},
			)
			require.NoError(t, err)

			var out bytes.Buffer
			pipeline, err := db.NewPipeline(enrich.WithOutput(&out))
			require.NoError(t, err)
			defer pipeline.Release()
			assert.Equal(t, 3, pipeline.PoolSize())

			summary, err := pipeline.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, summary.Stored)
			assert.True(t, strings.HasSuffix(out.String(), enrich.CompletionLine+"\n"))

			record, err := db.Repository().FindByName(ctx, "gaucher disease")
			require.NoError(t, err)
			assert.Equal(t, enrich.BuildPrompt(record), record.Description)

			suggester, err := db.NewSuggester()
			require.NoError(t, err)
			names, err := suggester.Suggest(ctx, "disease", 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"Fabry disease", "Gaucher disease"}, names)

			_, err = pipeline.Describe(ctx, "Pompe disease")
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}
