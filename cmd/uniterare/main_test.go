package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/uniterare/core"
	"github.com/poiesic/uniterare/storage/sqlstore"
)

var configKeys = []string{
	"STORE", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
	"SQLITE_PATH", "BADGER_PATH", "GROQ_API_KEY", "AI_HOST", "AI_MODEL", "AI_TIMEOUT",
	"MAX_WORKERS", "MAX_ATTEMPTS", "RETRY_DELAY",
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("log-level defaults to info", func(t *testing.T) {
		var levelFlag *cli.StringFlag
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "log-level" {
				levelFlag = f
			}
		}
		require.NotNil(t, levelFlag)
		assert.Equal(t, "info", levelFlag.Value)
		assert.Equal(t, []string{"l"}, levelFlag.Aliases)
	})

	t.Run("enrich flags have no defaults that mask the environment", func(t *testing.T) {
		cmd := findCommand(t, app, "enrich")
		for _, flag := range cmd.Flags {
			switch f := flag.(type) {
			case *cli.IntFlag:
				assert.Zero(t, f.Value, f.Name)
			case *cli.DurationFlag:
				assert.Zero(t, f.Value, f.Name)
			}
		}
	})

	t.Run("describe takes a name", func(t *testing.T) {
		cmd := findCommand(t, app, "describe")
		assert.Equal(t, "<disease name>", cmd.ArgsUsage)
	})
}

func TestDescribeRequiresName(t *testing.T) {
	err := newApp().Run([]string{"uniterare", "describe", "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disease name is required")
}

func TestEnrichRejectsBadConfig(t *testing.T) {
	isolateEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.env")

	err := newApp().Run([]string{"uniterare", "--env-file", missing, "--store", "mysql", "enrich"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE")

	err = newApp().Run([]string{"uniterare", "--env-file", missing, "--store", "badger", "enrich", "--workers", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_WORKERS")

	err = newApp().Run([]string{"uniterare", "--env-file", missing, "enrich", "--report-interval", "-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report-interval")
}

func TestEnrichCommand_SQLite(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "diseases.db")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "<think>plan</think>\nA lysosomal storage disorder."},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	defer srv.Close()

	ctx := context.Background()
	repo, err := sqlstore.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))
	_, err = repo.AddRecords(ctx, &core.Record{Name: "Fabry disease"}, &core.Record{Name: "Gaucher disease"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"STORE=sqlite\nSQLITE_PATH="+dbPath+"\nAI_HOST="+srv.URL+"\nAI_MODEL=test-model\n"), 0o600))

	err = newApp().Run([]string{"uniterare", "--log-level", "error", "--env-file", envFile, "enrich", "-w", "2"})
	require.NoError(t, err)

	repo, err = sqlstore.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	defer repo.Close()

	pending, err := repo.FetchPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	record, err := repo.FindByName(ctx, "fabry disease")
	require.NoError(t, err)
	assert.Equal(t, "A lysosomal storage disorder.", record.Description)
}

func TestSetupLogger(t *testing.T) {
	run := func(level string) error {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		return app.Run([]string{"test", "-l", level})
	}

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
		t.Run(level, func(t *testing.T) {
			require.NoError(t, run(level))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := run("verbose")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
