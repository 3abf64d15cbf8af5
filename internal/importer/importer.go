// Package importer loads plan documents written by the plan generator from
// disk into the schedule.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/schedule"
)

// Source is recorded in the import log for file imports.
const Source = "file"

// Stats reports what one import did.
type Stats struct {
	File     string
	Received int
	Accepted int
	Rejected []schedule.Rejection
	DryRun   bool
}

// PlanReplacer stores a plan. *schedule.Service satisfies it.
type PlanReplacer interface {
	ReplacePlan(ctx context.Context, source string, doc models.PlanDocument) (*schedule.ImportResult, error)
}

// Importer reads plan files and replaces the schedule with them.
type Importer struct {
	plans  PlanReplacer
	log    *slog.Logger
	dryRun bool
}

// New creates a new Importer. In dry-run mode files are parsed and validated
// but nothing is written.
func New(plans PlanReplacer, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{plans: plans, log: log, dryRun: dryRun}
}

// Import loads the plan at path.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	stats := &Stats{File: path, DryRun: imp.dryRun}

	data, err := ReadPlanFile(path)
	if err != nil {
		return stats, err
	}
	doc, err := DecodePlan(data)
	if err != nil {
		return stats, fmt.Errorf("parsing %s: %w", path, err)
	}

	var res schedule.ImportResult
	if imp.dryRun {
		_, res = schedule.ValidatePlan(doc)
	} else {
		r, err := imp.plans.ReplacePlan(ctx, Source, doc)
		if r != nil {
			res = *r
		}
		if err != nil {
			stats.fill(res)
			return stats, fmt.Errorf("importing %s: %w", path, err)
		}
	}
	stats.fill(res)

	imp.log.Info("plan imported", "file", path, "received", stats.Received, "accepted", stats.Accepted, "dry_run", imp.dryRun)
	return stats, nil
}

func (s *Stats) fill(res schedule.ImportResult) {
	s.Received = res.Received
	s.Accepted = res.Accepted
	s.Rejected = res.Rejected
}

// DecodePlan parses a plan document. The workouts array is required so an
// unrelated JSON file cannot clear the schedule.
func DecodePlan(data []byte) (models.PlanDocument, error) {
	var probe struct {
		Workouts json.RawMessage `json:"workouts"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return models.PlanDocument{}, err
	}
	if len(probe.Workouts) == 0 || string(probe.Workouts) == "null" {
		return models.PlanDocument{}, errors.New(`missing "workouts" array`)
	}

	var doc models.PlanDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.PlanDocument{}, err
	}
	return doc, nil
}
