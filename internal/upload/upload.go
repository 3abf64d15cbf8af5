// Package upload sends plan files from the generator's machine to a remote
// circuit server.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/claude/circuit/internal/importer"
	"github.com/claude/circuit/internal/schedule"
)

// Source is recorded in the server's import log for uploads.
const Source = "upload"

// Stats reports what one upload did.
type Stats struct {
	File     string
	Skipped  bool
	Received int
	Accepted int
	Rejected []schedule.Rejection
}

// Uploader validates plan files locally and sends them to the server.
type Uploader struct {
	client *Client
	state  *StateDB
	dryRun bool
	force  bool
	log    *slog.Logger
}

// New creates a new Uploader. client may be nil in dry-run mode; state may be
// nil to always send.
func New(client *Client, state *StateDB, dryRun, force bool, log *slog.Logger) *Uploader {
	return &Uploader{client: client, state: state, dryRun: dryRun, force: force, log: log}
}

// Upload sends the plan at path unless the server already has this content.
func (u *Uploader) Upload(ctx context.Context, path string) (*Stats, error) {
	stats := &Stats{File: path}

	data, err := importer.ReadPlanFile(path)
	if err != nil {
		return stats, err
	}
	doc, err := importer.DecodePlan(data)
	if err != nil {
		return stats, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Validate locally first so a broken generator run is reported without
	// a round trip.
	_, res := schedule.ValidatePlan(doc)
	stats.Received, stats.Accepted, stats.Rejected = res.Received, res.Accepted, res.Rejected
	if res.Received > 0 && res.Accepted == 0 {
		return stats, fmt.Errorf("%s: %w", path, schedule.ErrNoValidWorkouts)
	}
	if u.dryRun {
		return stats, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	hash := HashPlan(data)
	if u.state != nil && !u.force {
		done, err := u.state.IsUploaded(u.client.serverURL, abs, hash)
		if err != nil {
			u.log.Warn("state lookup failed", "error", err)
		} else if done {
			u.log.Info("plan unchanged, skipping", "file", path)
			stats.Skipped = true
			return stats, nil
		}
	}

	sent, err := u.client.SendPlan(ctx, Source, data)
	if err != nil {
		return stats, fmt.Errorf("uploading %s: %w", path, err)
	}
	stats.Received, stats.Accepted, stats.Rejected = sent.Received, sent.Accepted, sent.Rejected

	if u.state != nil {
		if err := u.state.MarkUploaded(u.client.serverURL, abs, hash, sent.Accepted); err != nil {
			u.log.Warn("failed to record upload", "error", err)
		}
	}
	u.log.Info("plan uploaded", "file", path, "received", sent.Received, "accepted", sent.Accepted)
	return stats, nil
}
