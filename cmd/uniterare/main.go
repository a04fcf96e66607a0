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


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/uniterare"
	"github.com/poiesic/uniterare/config"
	"github.com/poiesic/uniterare/enrich"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "uniterare",
		Usage: "Fill in missing rare disease descriptions with a text generator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Optional .env file read before the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Record store (postgres, sqlite, badger); overrides STORE",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "enrich",
				Usage:  "Generate and store a description for every pending record",
				Action: enrichCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Number of records processed at once; overrides MAX_WORKERS",
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Generator attempts per record; overrides MAX_ATTEMPTS",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff; overrides RETRY_DELAY",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress on stderr every N records (0 disables)",
						Value: 0,
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address while running, e.g. :9090",
					},
				},
			},
			{
				Name:      "describe",
				Usage:     "Print the description of one record, generating it if missing",
				ArgsUsage: "<disease name>",
				Action:    describeCommand,
			},
		},
	}
}

// loadConfig reads the environment and applies flags the user set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var files []string
	if path := c.String("env-file"); path != "" {
		files = append(files, path)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	if c.IsSet("store") {
		cfg.Store = strings.ToLower(c.String("store"))
	}
	if c.IsSet("workers") {
		cfg.MaxWorkers = c.Int("workers")
	}
	if c.IsSet("max-attempts") {
		cfg.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("retry-delay") {
		cfg.RetryDelay = c.Duration("retry-delay")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func enrichCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Int("report-interval") < 0 {
		return fmt.Errorf("report-interval must not be negative")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := uniterare.NewDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	opts := []enrich.Option{enrich.WithOutput(os.Stdout)}
	if every := c.Int("report-interval"); every > 0 {
		opts = append(opts, enrich.WithProgress(os.Stderr, every))
	}
	pipeline, err := db.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	if addr := c.String("metrics-addr"); addr != "" {
		shutdown := serveMetrics(addr)
		defer shutdown()
	}

	fmt.Fprintf(os.Stderr, "Store: %s\n", cfg.Store)
	fmt.Fprintf(os.Stderr, "Model: %s\n", cfg.AIModel)
	fmt.Fprintf(os.Stderr, "Workers: %d\n", pipeline.PoolSize())
	fmt.Fprintln(os.Stderr)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	// Per-record failures are reported above and do not change the exit status.
	fmt.Fprintf(os.Stderr, "Stored %d of %d records in %s (%d failed)\n",
		summary.Stored, summary.Total, summary.Elapsed.Round(time.Millisecond), summary.Failed)
	return nil
}

func describeCommand(c *cli.Context) error {
	name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("disease name is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := uniterare.NewDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewPipeline(enrich.WithPoolSize(1))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	description, err := pipeline.Describe(ctx, name)
	if err != nil {
		return err
	}
	fmt.Println(description)
	return nil
}

// serveMetrics exposes the default Prometheus registry until the returned
// function is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown", "err", err)
		}
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
