package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/circuit/internal/client"
	"github.com/claude/circuit/internal/config"
	"github.com/claude/circuit/internal/mcp"
	"github.com/claude/circuit/internal/schedule"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "circuit server URL; when empty the database from -config is used directly")
	apiKey := flag.String("api-key", os.Getenv("CIRCUIT_API_KEY"), "server API key (default $CIRCUIT_API_KEY)")
	configPath := flag.String("config", "config.yaml", "path to config file for local mode")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource
	if *serverURL != "" {
		ds = client.NewHTTPClient(*serverURL, *apiKey)
		log.Info("serving remote schedule", "url", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		svc, closeDB, err := schedule.Open(context.Background(), cfg.Database, log)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer closeDB()
		ds = svc
	}

	if err := mcpserver.ServeStdio(mcp.New(ds, Version, log)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
