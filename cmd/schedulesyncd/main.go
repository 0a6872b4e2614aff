// Command schedulesyncd is the worker daemon: it polls schedule_sources
// for rows due a refresh and runs each one through the Source Runner,
// bounded by a small worker pool. Plain goroutines and a semaphore
// channel, not an errgroup or scheduling framework — the system's
// Non-goals rule out building a general scraping framework, and a daemon
// loop this small doesn't need one.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teammeet/schedulesync/internal/cli"
	"github.com/teammeet/schedulesync/internal/config"
	"github.com/teammeet/schedulesync/internal/runner"
	"github.com/teammeet/schedulesync/internal/store"
)

func main() {
	var (
		databaseDSN       = flag.String("database-dsn", "", "PostgreSQL connection string")
		production        = flag.Bool("production", false, "disable the allowlist test override")
		logLevel          = flag.String("log-level", "info", "zerolog level")
		workerConcurrency = flag.Int("worker-concurrency", 0, "worker pool size (0 uses the config default)")
		pollInterval      = flag.Duration("poll-interval", 0, "poll interval (0 uses the config default)")
		syncWindowPast    = flag.Duration("sync-window-past", 0, "0 uses the config default")
		syncWindowFuture  = flag.Duration("sync-window-future", 0, "0 uses the config default")
	)
	flag.Parse()

	builder := config.WithDefault().WithLogLevel(*logLevel)
	if *databaseDSN != "" {
		builder = builder.WithDatabaseDSN(*databaseDSN)
	}
	if *production {
		builder = builder.WithProduction(*production)
	}
	if *workerConcurrency > 0 {
		builder = builder.WithWorkerConcurrency(*workerConcurrency)
	}
	if *pollInterval > 0 {
		builder = builder.WithPollInterval(*pollInterval)
	}
	if *syncWindowPast > 0 {
		builder = builder.WithSyncWindowPast(*syncWindowPast)
	}
	if *syncWindowFuture > 0 {
		builder = builder.WithSyncWindowFuture(*syncWindowFuture)
	}
	cfg, err := builder.Build()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.BuildApp(ctx, cfg)
	if err != nil {
		panic(err)
	}

	app.Log.Info().
		Int("worker_concurrency", cfg.WorkerConcurrency()).
		Dur("poll_interval", cfg.PollInterval()).
		Msg("schedulesyncd starting")

	runLoop(ctx, app, cfg)
}

// runLoop polls for due sources every poll interval until ctx is
// cancelled, running up to cfg.WorkerConcurrency() sources concurrently
// per tick.
func runLoop(ctx context.Context, app *cli.App, cfg config.Config) {
	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	for {
		runTick(ctx, app, cfg)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runTick(ctx context.Context, app *cli.App, cfg config.Config) {
	sources, err := app.Store.ListSourcesDueForSync(ctx, cfg.WorkerConcurrency()*4)
	if err != nil {
		app.Log.Error().Err(err).Msg("failed to list sources due for sync")
		return
	}
	if len(sources) == 0 {
		return
	}

	window := store.SyncWindow{
		From: time.Now().Add(-cfg.SyncWindowPast()),
		To:   time.Now().Add(cfg.SyncWindowFuture()),
	}

	sem := make(chan struct{}, cfg.WorkerConcurrency())
	done := make(chan struct{}, len(sources))

	for _, source := range sources {
		source := source
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- struct{}{} }()
			syncOne(ctx, app, source, window)
		}()
	}
	for range sources {
		<-done
	}
}

func syncOne(ctx context.Context, app *cli.App, source store.ScheduleSource, window store.SyncWindow) {
	result, err := runner.SyncScheduleSource(ctx, app.Store, app.Connectors, runner.Input{
		Source: source,
		Window: window,
	})
	if err != nil {
		app.Log.Error().Err(err).Str("source_id", source.ID).Msg("sync failed to persist result")
		return
	}
	app.Log.Info().
		Str("source_id", source.ID).
		Bool("ok", result.Ok).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("cancelled", result.Cancelled).
		Msg("source synced")
}
