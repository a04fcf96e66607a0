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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/uniterare"
	"github.com/poiesic/uniterare/config"
	"github.com/poiesic/uniterare/importer"
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	app := &cli.App{
		Name:      "seeder",
		Usage:     "Import disease names from a CSV or Excel export as pending records",
		ArgsUsage: "<file.csv|file.xlsx>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "column",
				Usage: "Header of the column holding the names",
				Value: importer.DefaultColumn,
			},
			&cli.StringFlag{
				Name:  "sheet",
				Usage: "Worksheet to read from an Excel file (default: first sheet)",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of names added per store call",
				Value: importer.DefaultBatchSize,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Optional .env file read before the environment",
				Value: ".env",
			},
		},
		Action: seed,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one CSV or Excel file, got %d arguments", c.NArg())
	}

	path := c.Args().First()
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var names []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		names, err = importer.ReadSheetNames(f, c.String("sheet"), c.String("column"))
	default:
		names, err = importer.ReadNames(f, c.String("column"))
	}
	if err != nil {
		return err
	}
	fmt.Printf("Found %d unique disease names\n", len(names))

	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := uniterare.NewDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	result, err := importer.Import(ctx, db.Repository(), names, c.Int("batch-size"))
	if err != nil {
		return err
	}
	fmt.Printf("Added %d records (%d already present or invalid)\n", result.Added, result.Skipped)
	return nil
}
