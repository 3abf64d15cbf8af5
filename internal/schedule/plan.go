package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/storage"
)

// Rejection explains why one workout of a plan was not stored.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult summarises a plan replacement.
type ImportResult struct {
	Received int         `json:"workouts_received"`
	Accepted int         `json:"workouts_accepted"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// ValidatePlan decodes and validates every workout of doc without storing
// anything. The returned rows are ready for Store.ReplacePlan.
func ValidatePlan(doc models.PlanDocument) ([]storage.ScheduledWorkout, ImportResult) {
	res := ImportResult{Received: len(doc.Workouts)}
	var rows []storage.ScheduledWorkout

	for i, raw := range doc.Workouts {
		var w models.Workout
		if err := json.Unmarshal(raw, &w); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		if err := models.ValidateWorkout(w); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, ID: w.ID, Reason: err.Error()})
			continue
		}
		rows = append(rows, storage.ScheduledWorkout{
			WorkoutID:     w.ID,
			ScheduledDate: w.Date,
			Title:         w.Title,
			Doc:           raw,
		})
	}
	res.Accepted = len(rows)
	return rows, res
}

// ReplacePlan stores doc as the new schedule. Invalid workouts are dropped
// and reported; a plan with workouts but none valid is refused. Every call is
// recorded in the import log under source.
func (s *Service) ReplacePlan(ctx context.Context, source string, doc models.PlanDocument) (*ImportResult, error) {
	start := time.Now()
	logID, logErr := s.store.InsertImportLog(ctx, storage.ImportLog{
		Source:           source,
		Status:           storage.ImportRunning,
		WorkoutsReceived: len(doc.Workouts),
	})
	if logErr != nil {
		s.log.Error("failed to create import log", "error", logErr)
	}

	rows, res := ValidatePlan(doc)
	err := s.replace(ctx, doc.Meta, rows, res)

	if logErr == nil {
		s.finishImportLog(ctx, logID, res, err, time.Since(start))
	}
	if err != nil {
		return &res, err
	}

	s.log.Info("plan replaced", "source", source, "received", res.Received, "accepted", res.Accepted)
	for _, r := range res.Rejected {
		s.log.Warn("workout rejected", "index", r.Index, "id", r.ID, "reason", r.Reason)
	}
	return &res, nil
}

func (s *Service) replace(ctx context.Context, meta json.RawMessage, rows []storage.ScheduledWorkout, res ImportResult) error {
	if res.Received > 0 && res.Accepted == 0 {
		return ErrNoValidWorkouts
	}
	if err := s.store.ReplacePlan(ctx, meta, rows); err != nil {
		return fmt.Errorf("replacing plan: %w", err)
	}
	return nil
}

func (s *Service) finishImportLog(ctx context.Context, id int64, res ImportResult, importErr error, elapsed time.Duration) {
	status := storage.ImportSuccess
	var errMsg *string
	if importErr != nil {
		status = storage.ImportError
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(elapsed.Milliseconds())

	if err := s.store.UpdateImportLog(ctx, id, storage.ImportLog{
		Status:           status,
		WorkoutsReceived: res.Received,
		WorkoutsAccepted: res.Accepted,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}); err != nil {
		s.log.Error("failed to finalize import log", "log_id", id, "error", err)
	}
}
