package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/claude/circuit/internal/client"
	"github.com/claude/circuit/internal/clock"
	"github.com/claude/circuit/internal/config"
	"github.com/claude/circuit/internal/schedule"
	"github.com/claude/circuit/internal/session"
	"github.com/claude/circuit/internal/tui"
)

func main() {
	serverURL := flag.String("server", "", "circuit server URL; when empty the database from -config is used directly")
	apiKey := flag.String("api-key", os.Getenv("CIRCUIT_API_KEY"), "server API key (default $CIRCUIT_API_KEY)")
	configPath := flag.String("config", "config.yaml", "path to config file for local mode")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	if err := run(*serverURL, *apiKey, *configPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource the player opens so deferred closes happen before
// main decides the exit code.
func run(serverURL, apiKey, configPath, logPath string) error {
	var logOut io.Writer = io.Discard
	if logPath != "" {
		f, err := tea.LogToFile(logPath, "circuit-play")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var store session.Persistence
	if serverURL != "" {
		store = client.NewHTTPClient(serverURL, apiKey)
		log.Info("using remote server", "url", serverURL)
	} else {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		svc, closeDB, err := schedule.Open(context.Background(), cfg.Database, log)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer closeDB()
		store = svc
		log.Info("using local database", "driver", cfg.Database.Driver)
	}

	notifier := tui.NewNotifier()
	ctrl := session.New(clock.NewTicker(time.Second), store,
		session.WithListener(notifier.Listen),
		session.WithAlerter(tui.Bell{W: os.Stderr}),
		session.WithLogger(log),
	)

	p := tea.NewProgram(tui.NewModel(ctrl, notifier), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("player exited", "error", err)
		return err
	}
	return nil
}
