package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/circuit/internal/config"
	"github.com/claude/circuit/internal/importer"
	"github.com/claude/circuit/internal/schedule"
	"github.com/claude/circuit/internal/watcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	planPath := flag.String("path", "", "path to plan JSON file, optionally gzipped (required)")
	dryRun := flag.Bool("dry-run", false, "validate the plan without writing to the database")
	watch := flag.Bool("watch", false, "keep running and re-import whenever the file changes")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *planPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: circuit-import -config config.yaml -path plan.json [-dry-run] [-watch]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode: plan is validated but not stored")
	}

	svc, closeDB, err := schedule.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	imp := importer.New(svc, log, *dryRun)
	run := func() error {
		stats, err := imp.Import(ctx, *planPath)
		printStats(log, stats)
		return err
	}

	if err := run(); err != nil {
		log.Error("import failed", "error", err)
		if !*watch {
			closeDB()
			os.Exit(1)
		}
	}
	if !*watch {
		log.Info("import complete")
		return
	}

	w, err := watcher.New(watcher.DefaultConfig(*planPath))
	if err != nil {
		log.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	defer func() { _ = w.Stop() }()
	changes, err := w.Start()
	if err != nil {
		log.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	log.Info("watching for changes", "path", *planPath)

	for {
		select {
		case <-ctx.Done():
			log.Info("stopped watching")
			return
		case <-changes:
			if err := run(); err != nil {
				log.Error("import failed", "error", err)
			}
		}
	}
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"file", stats.File,
		"received", stats.Received,
		"accepted", stats.Accepted,
		"rejected", len(stats.Rejected),
		"dry_run", stats.DryRun,
	)
	for _, r := range stats.Rejected {
		log.Info("rejected workout", "index", r.Index, "id", r.ID, "reason", r.Reason)
	}
}
