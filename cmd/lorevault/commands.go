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
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/lorevault"
	"github.com/poiesic/lorevault/config"
	"github.com/poiesic/lorevault/core"
	"github.com/poiesic/lorevault/ingestion"
	"github.com/poiesic/lorevault/loader"
	"github.com/poiesic/lorevault/reembed"
	"github.com/urfave/cli/v2"
)

// openVault is replaced in tests.
var openVault = func(cfg *config.Config) (*lorevault.Vault, error) {
	return lorevault.Open(cfg, lorevault.WithLogger(slog.Default()))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withVault(c *cli.Context, fn func(context.Context, *lorevault.Vault) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return runWithVault(c, cfg, fn)
}

func runWithVault(c *cli.Context, cfg *config.Config, fn func(context.Context, *lorevault.Vault) error) error {
	vault, err := openVault(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer vault.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	return fn(ctx, vault)
}

func importCommand(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		return fmt.Errorf("path is required")
	}
	if workers := c.Int("workers"); workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.Bool("skip-existing") {
		cfg.Import.SkipExisting = true
	}
	if c.Bool("no-extraction") {
		cfg.Import.ExtractEntities = false
	}
	if c.Int("workers") > 0 {
		cfg.Import.Workers = c.Int("workers")
	}
	if c.IsSet("recursive") {
		cfg.Import.Recursive = c.Bool("recursive")
	}
	excludes := mergeExcludes(cfg.Import.Exclude, c.StringSlice("exclude"))

	paths, err := loader.Discover(root, cfg.Import.Recursive, excludes)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no markdown files found in %s", root)
	}

	return runWithVault(c, cfg, func(ctx context.Context, vault *lorevault.Vault) error {
		progress := newImportProgress(defaultProgressEnabled())
		importer, err := vault.NewImporter(ingestion.WithProgress(progress.Update))
		if err != nil {
			return err
		}
		defer importer.Release()

		out := c.App.Writer
		fmt.Fprintf(out, "Importing %d file(s) from %s\n", len(paths), root)

		progress.Start(len(paths))
		summary, runErr := importer.ImportBatch(ctx, paths)
		progress.Finish()

		logPath := c.String("output-log")
		if logPath == "" {
			name := fmt.Sprintf("import_%s.json", summary.Timestamp.Format("20060102_150405"))
			logPath = filepath.Join(vault.Config().OutputDirectory, name)
		}
		if err := writeSummaryFile(logPath, summary); err != nil {
			slog.Error("failed to write import summary", "path", logPath, "err", err)
		} else {
			fmt.Fprintf(out, "Summary written to %s\n", logPath)
		}

		printSummary(out, summary)
		if runErr != nil {
			return fmt.Errorf("import aborted: %w", runErr)
		}
		if summary.Failed > 0 {
			return cli.Exit(fmt.Sprintf("%d document(s) failed", summary.Failed), 1)
		}
		return nil
	})
}

func writeSummaryFile(path string, summary *core.BatchSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := core.WriteSummary(f, summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, s *core.BatchSummary) {
	fmt.Fprintln(w)
	if s.FatalError != "" {
		fmt.Fprintf(w, "Batch aborted: %s\n", s.FatalError)
		return
	}
	fmt.Fprintf(w, "Files:      %d attempted of %d\n", s.Attempted, s.TotalFiles)
	fmt.Fprintf(w, "Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(w, "Failed:     %d\n", s.Failed)
	fmt.Fprintf(w, "Chunks:     %d\n", s.TotalChunks)
	fmt.Fprintf(w, "Entities:   %d (%d below threshold)\n", s.TotalEntities, s.EntitiesBelowThreshold)
	fmt.Fprintf(w, "Extraction skipped for adventure content: %d\n", s.ExtractionSkippedByPolicy)
	if s.Cancelled {
		fmt.Fprintln(w, "Import was cancelled before all files were processed")
	}

	if len(s.CollectionDistribution) > 0 {
		fmt.Fprintln(w, "\nCollections:")
		for _, name := range sortedNames(s.CollectionDistribution) {
			fmt.Fprintf(w, "  %s: %d document(s), %d chunk(s)\n", name, s.CollectionDistribution[name], s.CollectionChunks[name])
		}
	}
	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s [%s at %s]: %s\n", f.FilePath, f.Reason, f.Stage, f.Error)
		}
	}
}

func validateCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out := c.App.Writer
	fmt.Fprint(out, cfg.Redacted())

	vault, err := openVault(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	defer vault.Close()

	gw, err := vault.Gateway()
	if err != nil {
		return err
	}
	dim, err := gw.CheckConnectivity(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nStore and embedding service reachable (dimension %d)\n", dim)
	return nil
}

func statsCommand(c *cli.Context) error {
	return withVault(c, func(ctx context.Context, vault *lorevault.Vault) error {
		gw, err := vault.Gateway()
		if err != nil {
			return err
		}
		infos, err := gw.Stats(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLLECTION\tPOINTS\tDIMENSION\tSTATUS")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", info.Name, info.PointsCount, info.Dimension, info.Status)
		}
		return tw.Flush()
	})
}

func deleteCommand(c *cli.Context) error {
	documentID := loader.DocumentID(c.String("document"))
	return withVault(c, func(ctx context.Context, vault *lorevault.Vault) error {
		gw, err := vault.Gateway()
		if err != nil {
			return err
		}
		deleted, err := gw.DeleteDocument(ctx, documentID)
		if err != nil {
			return err
		}

		out := c.App.Writer
		if len(deleted) == 0 {
			fmt.Fprintf(out, "No points found for %s\n", documentID)
			return nil
		}
		for _, name := range sortedNames(deleted) {
			fmt.Fprintf(out, "Deleted %d point(s) from %s\n", deleted[name], name)
		}
		return nil
	})
}

func cleanupCommand(c *cli.Context) error {
	execute := c.Bool("execute")
	return withVault(c, func(ctx context.Context, vault *lorevault.Vault) error {
		gw, err := vault.Gateway()
		if err != nil {
			return err
		}
		report, err := gw.CleanupAdventureContent(ctx, !execute)
		if err != nil {
			return err
		}

		out := c.App.Writer
		if report.Empty() {
			fmt.Fprintln(out, "No misplaced adventure content found")
			return nil
		}
		for _, id := range sortedNames(report.MisplacedDocuments) {
			fmt.Fprintf(out, "rulebook collection: %s (%d chunks)\n", id, report.MisplacedDocuments[id])
		}
		for _, id := range sortedNames(report.AdventureEntities) {
			fmt.Fprintf(out, "entity collection: %s (%d entities)\n", id, report.AdventureEntities[id])
		}
		if report.DryRun {
			fmt.Fprintln(out, "\nDry run: rerun with --execute to delete")
			return nil
		}
		fmt.Fprintf(out, "\nDeleted %d chunk(s) and %d entities\n", report.DeletedChunks, report.DeletedEntities)
		return nil
	})
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}

	var targets []core.CollectionTarget
	for _, name := range c.StringSlice("target") {
		target, err := core.ParseTarget(name)
		if err != nil {
			return err
		}
		targets = append(targets, target)
	}

	return withVault(c, func(ctx context.Context, vault *lorevault.Vault) error {
		searcher, err := vault.NewSearcher()
		if err != nil {
			return err
		}
		hits, err := searcher.Search(ctx, query, targets, c.Int("limit"))
		if err != nil {
			return err
		}

		out := c.App.Writer
		if len(hits) == 0 {
			fmt.Fprintln(out, "No results")
			return nil
		}
		for i, hit := range hits {
			marker := ""
			if hit.Verbatim {
				marker = " verbatim"
			}
			fmt.Fprintf(out, "%d. [%.3f%s] %s (%s)\n", i+1, hit.Score, marker, hit.Source(), hit.Collection)
			fmt.Fprintf(out, "   %s\n", snippet(hit.Text(), 200))
		}
		return nil
	})
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	collection := c.String("collection")
	return withVault(c, func(ctx context.Context, vault *lorevault.Vault) error {
		reembedder, err := vault.NewReembedder(collection, reembedConfig, os.Stderr)
		if err != nil {
			return err
		}

		cfg := vault.Config()
		fmt.Fprintf(os.Stderr, "Collection: %s\n", collection)
		fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
		fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
		fmt.Fprintln(os.Stderr)

		stats, err := reembedder.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("reembedding interrupted, rerun to resume: %w", err)
			}
			return fmt.Errorf("reembedding failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Reembedded %d point(s), skipped %d, in %s\n",
			stats.Reembedded, stats.Skipped, stats.Elapsed.Round(time.Second))
		return nil
	})
}

// mergeExcludes returns configured patterns followed by flag patterns in a
// new slice.
func mergeExcludes(configured, flags []string) []string {
	return slices.Concat(configured, flags)
}

func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
