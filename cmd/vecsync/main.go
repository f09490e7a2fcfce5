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
	"os/signal"
	"strings"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/vecsync/ai"
	"github.com/poiesic/vecsync/ai/openai"
	"github.com/poiesic/vecsync/catalog"
	"github.com/poiesic/vecsync/config"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/ingest"
	"github.com/poiesic/vecsync/reconcile"
	"github.com/poiesic/vecsync/reconcile/mq"
	"github.com/poiesic/vecsync/search"
	"github.com/poiesic/vecsync/storage/badger"
	"github.com/poiesic/vecsync/vector"
	"github.com/poiesic/vecsync/vector/pgvector"
)

var cleanupLogger = func() error { return nil }

func main() {
	app := &cli.App{
		Name:  "vecsync",
		Usage: "Keep a product vector index in sync with the catalog of record",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
		},
		Before: setupLogger,
		After: func(c *cli.Context) error {
			return cleanupLogger()
		},
		Commands: []*cli.Command{
			{
				Name:   "load",
				Usage:  "Load the full catalog into the vector store sequentially",
				Action: loadCommand,
				Flags: append(loadFlags(),
					&cli.DurationFlag{
						Name:  "batch-delay",
						Usage: "Pause between batch writes",
						Value: time.Second,
					},
				),
			},
			{
				Name:   "load-parallel",
				Usage:  "Load the full catalog with concurrent page workers",
				Action: loadParallelCommand,
				Flags: append(loadFlags(),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent page workers",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "write-concurrency",
						Usage: "Maximum concurrent vector store writes",
						Value: 3,
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show progress for one task, or all tasks",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "task",
						Aliases: []string{"t"},
						Usage:   "Task ID to inspect (all tasks if omitted)",
					},
				},
			},
			{
				Name:   "pause",
				Usage:  "Pause a running load task",
				Action: pauseCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "task",
						Aliases:  []string{"t"},
						Usage:    "Task ID to pause",
						Required: true,
					},
				},
			},
			{
				Name:   "remove",
				Usage:  "Remove a task's progress record",
				Action: removeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "task",
						Aliases:  []string{"t"},
						Usage:    "Task ID to remove",
						Required: true,
					},
				},
			},
			{
				Name:   "listen",
				Usage:  "Consume item change events and apply them to the vector store",
				Action: listenCommand,
			},
			{
				Name:      "emit",
				Usage:     "Publish an item change event",
				Action:    emitCommand,
				ArgsUsage: "ITEM_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Usage:    "Event type (CREATE, UPDATE, DELETE)",
						Required: true,
					},
				},
			},
			{
				Name:      "sync",
				Usage:     "Synchronize a single item immediately",
				Action:    syncCommand,
				ArgsUsage: "ITEM_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Event type (CREATE, UPDATE, DELETE)",
						Value: string(core.EventUpdate),
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the product index",
				Action:    searchCommand,
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   5,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "task",
			Aliases: []string{"t"},
			Usage:   "Task ID to resume (new task if omitted)",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "Number of items fetched per catalog page",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of documents per vector store write",
			Value: 10,
		},
	}
}

// openStore connects the embedder and the pgvector store.
func openStore(ctx context.Context, cfg *config.Config) (vector.Store, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	var aiOpts []ai.ConfigOption
	if cfg.EmbeddingHost != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingHost(cfg.EmbeddingHost))
	}
	if cfg.EmbeddingModel != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingModel(cfg.EmbeddingModel))
	}
	aiConfig := ai.NewConfig(aiOpts...)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := pgvector.New(ctx, cfg.DatabaseURL, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return store, nil
}

// openRegistry opens the progress database and wraps it in a registry.
func openRegistry(cfg *config.Config) (*ingest.Registry, func(), error) {
	backend, err := badger.OpenBackend(cfg.ProgressPath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open progress database: %w", err)
	}
	repo := badger.NewProgressRepository(backend)
	registry := ingest.NewRegistry(ingest.WithRepository(repo))
	return registry, func() { repo.Close() }, nil
}

func loadCommand(c *cli.Context) error {
	ctx := signalContext()
	cfg := config.Load()
	if err := cfg.RequireCatalog(); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	registry, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	source := catalog.NewClient(cfg.CatalogURL)
	committer := ingest.NewCommitter(store, registry)
	loader, err := ingest.NewLoader(source, committer, registry,
		ingest.WithPageSize(c.Int("page-size")),
		ingest.WithBatchSize(c.Int("batch-size")),
		ingest.WithBatchDelay(c.Duration("batch-delay")),
	)
	if err != nil {
		return err
	}

	taskID, err := loader.Run(ctx, c.String("task"))
	if err != nil {
		return fmt.Errorf("load failed (task %s): %w", taskID, err)
	}
	fmt.Printf("task %s finished\n", taskID)
	return nil
}

func loadParallelCommand(c *cli.Context) error {
	ctx := signalContext()
	cfg := config.Load()
	if err := cfg.RequireCatalog(); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	registry, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	source := catalog.NewClient(cfg.CatalogURL)
	committer := ingest.NewCommitter(store, registry)
	loader, err := ingest.NewParallelLoader(source, committer, registry,
		ingest.WithParallelPageSize(c.Int("page-size")),
		ingest.WithParallelBatchSize(c.Int("batch-size")),
		ingest.WithWorkers(c.Int("workers")),
		ingest.WithWriteConcurrency(c.Int("write-concurrency")),
	)
	if err != nil {
		return err
	}

	taskID, err := loader.Run(ctx, c.String("task"))
	if err != nil {
		return fmt.Errorf("parallel load failed (task %s): %w", taskID, err)
	}
	fmt.Printf("task %s finished\n", taskID)
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := config.Load()

	registry, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	if taskID := c.String("task"); taskID != "" {
		progress, err := registry.Get(ctx, taskID)
		if err != nil {
			return err
		}
		printProgress(progress)
		return nil
	}

	records, err := registry.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, progress := range records {
		printProgress(progress)
	}
	return nil
}

func printProgress(p *core.LoadProgress) {
	fmt.Printf("%s  %-9s  page %d", p.TaskID, p.Status, p.CurrentPage)
	if p.TotalPages > 0 {
		fmt.Printf("/%d", p.TotalPages)
	}
	fmt.Printf("  items %d", p.ProcessedItems)
	if p.TotalItems > 0 {
		fmt.Printf("/%d", p.TotalItems)
	}
	if p.ErrorMessage != "" {
		fmt.Printf("  error: %s", p.ErrorMessage)
	}
	fmt.Println()
}

func pauseCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := config.Load()

	registry, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	taskID := c.String("task")
	if err := registry.Pause(ctx, taskID); err != nil {
		return err
	}
	fmt.Printf("task %s paused\n", taskID)
	return nil
}

func removeCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := config.Load()

	registry, closeRegistry, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	taskID := c.String("task")
	if err := registry.Remove(ctx, taskID); err != nil {
		return err
	}
	fmt.Printf("task %s removed\n", taskID)
	return nil
}

func listenCommand(c *cli.Context) error {
	ctx := signalContext()
	cfg := config.Load()
	if err := cfg.RequireCatalog(); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	source := catalog.NewClient(cfg.CatalogURL)
	reconciler, err := reconcile.NewReconciler(store, source)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	listener := mq.NewListener(conn, reconciler)
	if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func emitCommand(c *cli.Context) error {
	ctx := context.Background()
	cfg := config.Load()

	itemID, eventType, err := eventArgs(c)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	publisher, err := mq.NewPublisher(ch)
	if err != nil {
		return err
	}
	if err := publisher.Publish(ctx, core.NewSyncEvent(itemID, eventType, nil)); err != nil {
		return err
	}
	fmt.Printf("%s event published for item %d\n", eventType, itemID)
	return nil
}

func syncCommand(c *cli.Context) error {
	ctx := signalContext()
	cfg := config.Load()
	if err := cfg.RequireCatalog(); err != nil {
		return err
	}

	itemID, eventType, err := eventArgs(c)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	source := catalog.NewClient(cfg.CatalogURL)
	reconciler, err := reconcile.NewReconciler(store, source)
	if err != nil {
		return err
	}

	if err := reconciler.Apply(ctx, core.NewSyncEvent(itemID, eventType, nil)); err != nil {
		return err
	}
	fmt.Printf("item %d synchronized\n", itemID)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := signalContext()
	cfg := config.Load()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	searcher, err := search.NewSearcher(store)
	if err != nil {
		return err
	}

	docs, err := searcher.Query(ctx, query, c.Int("top"))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, doc := range docs {
		fmt.Printf("%d. [%s]\n%s\n\n", i+1, doc.MetadataID(), doc.Content)
	}
	return nil
}

// eventArgs parses the item ID argument and the --type flag.
func eventArgs(c *cli.Context) (int64, core.EventType, error) {
	if c.NArg() != 1 {
		return 0, "", fmt.Errorf("exactly one ITEM_ID argument is required")
	}
	var itemID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &itemID); err != nil || itemID <= 0 {
		return 0, "", fmt.Errorf("invalid item ID %q", c.Args().First())
	}

	eventType := core.EventType(strings.ToUpper(c.String("type")))
	switch eventType {
	case core.EventCreate, core.EventUpdate, core.EventDelete:
		return itemID, eventType, nil
	default:
		return 0, "", fmt.Errorf("invalid event type %q: must be CREATE, UPDATE, or DELETE", c.String("type"))
	}
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
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

	logFile := c.String("log-file")
	if logFile == "" {
		logFile = config.Load().LogFile
	}

	logger, cleanup := config.SetupLogger(logFile, level)
	cleanupLogger = cleanup
	slog.SetDefault(logger)
	return nil
}
