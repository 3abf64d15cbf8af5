package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/circuit/internal/upload"
	"github.com/claude/circuit/internal/watcher"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "circuit server URL (e.g. https://circuit.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("CIRCUIT_API_KEY"), "server API key (default $CIRCUIT_API_KEY)")
	planPath := flag.String("path", "", "path to plan JSON file, optionally gzipped")
	dryRun := flag.Bool("dry-run", false, "validate the plan but don't send it")
	force := flag.Bool("force", false, "send even if this content was already uploaded")
	watch := flag.Bool("watch", false, "keep running and upload whenever the file changes")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("circuit-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *planPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: circuit-upload -server <URL> -api-key <key> -path <plan.json> [-dry-run] [-force] [-watch]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}
	if *apiKey == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -api-key is required (or set CIRCUIT_API_KEY)\n")
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".circuit-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: plan is validated but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(client, state, *dryRun, *force, log)
	run := func() error {
		stats, err := uploader.Upload(ctx, *planPath)
		printStats(stats)
		return err
	}

	if err := run(); err != nil {
		log.Error("upload failed", "error", err)
		if !*watch {
			state.Close()
			os.Exit(1)
		}
	}
	if !*watch {
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
				log.Error("upload failed", "error", err)
			}
		}
	}
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  File:       %s\n", stats.File)
	if stats.Skipped {
		fmt.Println("  Skipped:    unchanged since last upload")
		fmt.Println()
		return
	}
	fmt.Printf("  Received:   %d\n", stats.Received)
	fmt.Printf("  Accepted:   %d\n", stats.Accepted)
	fmt.Printf("  Rejected:   %d\n", len(stats.Rejected))
	for _, r := range stats.Rejected {
		fmt.Printf("    - #%d %s: %s\n", r.Index, r.ID, r.Reason)
	}
	fmt.Println()
}
