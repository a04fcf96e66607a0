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
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/uniterare"
	"github.com/poiesic/uniterare/config"
	"github.com/poiesic/uniterare/search"
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	app := &cli.App{
		Name:      "searcher",
		Usage:     "Suggest disease names matching a partial query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of suggestions",
				Value:   search.DefaultLimit,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			db, err := uniterare.NewDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			suggester, err := db.NewSuggester()
			if err != nil {
				return err
			}

			names, err := suggester.Suggest(ctx, strings.Join(c.Args().Slice(), " "), c.Int("limit"))
			if err != nil {
				return err
			}

			fmt.Printf("Found %d suggestions\n", len(names))
			for i, name := range names {
				fmt.Printf("%d: %s\n", i, name)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
