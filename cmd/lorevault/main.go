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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "lorevault",
		Usage: "Import tabletop game books into a vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file (default: ./lorevault.yaml if present)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before reading the environment",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import a markdown file or a directory of markdown files",
				ArgsUsage: "<path>",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "skip-existing",
						Usage: "Skip documents that are already in the store",
					},
					&cli.BoolFlag{
						Name:  "no-extraction",
						Usage: "Disable entity extraction",
					},
					&cli.BoolFlag{
						Name:    "recursive",
						Aliases: []string{"r"},
						Usage:   "Descend into subdirectories",
						Value:   true,
					},
					&cli.StringSliceFlag{
						Name:  "exclude",
						Usage: "Glob pattern of files to leave out, relative to the import root (repeatable)",
					},
					&cli.StringFlag{
						Name:  "output-log",
						Usage: "Where to write the JSON import summary (default: <output_directory>/import_<timestamp>.json)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of documents processed in parallel (default from config)",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration and connectivity to the store and embedding service",
				Action: validateCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show point counts for each collection",
				Action: statsCommand,
			},
			{
				Name:   "delete",
				Usage:  "Delete every point of a document from all collections",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "document",
						Aliases:  []string{"d"},
						Usage:    "Path of the imported document",
						Required: true,
					},
				},
			},
			{
				Name:   "cleanup-adventures",
				Usage:  "Find adventure content stored as rulebook content or canonical entities",
				Action: cleanupCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "execute",
						Usage: "Delete what was found instead of only reporting it",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search imported content",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.StringSliceFlag{
						Name:    "target",
						Aliases: []string{"t"},
						Usage:   "Collection to search: rulebook, adventure_path, entity (repeatable, default all)",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all points of a collection with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "collection",
						Usage:    "Full collection name, e.g. game_rulebooks",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of points to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N points",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
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
