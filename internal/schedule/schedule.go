// Package schedule is the backend's view of the workout plan: which workouts
// are scheduled and in what order, archiving finished ones into the completed
// history, and replacing the plan with generator output.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/storage"
)

var (
	// ErrMissingID is returned by CompleteWorkout when no workout id is given.
	ErrMissingID = errors.New("missing workout id")
	// ErrNotFound is returned when no scheduled workout matches.
	ErrNotFound = errors.New("workout not found")
	// ErrNoValidWorkouts rejects a plan whose workouts all fail validation, so
	// a broken generator run cannot wipe the schedule.
	ErrNoValidWorkouts = errors.New("plan contains no valid workouts")
)

const (
	completedAtLayout = "2006-01-02 15:04:05"
	untitled          = "Untitled Workout"
)

// Store is the persistence the service needs. Both storage.DB and
// storage.SQLiteDB satisfy it.
type Store interface {
	ReplacePlan(ctx context.Context, meta json.RawMessage, workouts []storage.ScheduledWorkout) error
	LoadPlan(ctx context.Context) (*storage.Plan, error)
	ArchiveWorkout(ctx context.Context, seq int64, entry models.CompletedEntry) error
	ListCompleted(ctx context.Context) ([]models.CompletedEntry, error)
	GetCompleted(ctx context.Context, id string) (*models.CompletedEntry, error)

	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*storage.SQLiteDB)(nil)
)

// Service implements the schedule operations over a Store.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Service. A nil logger discards output.
func New(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, log: log, now: time.Now}
}

// scheduled pairs a decoded workout with its stored row.
type scheduled struct {
	seq     int64
	doc     json.RawMessage
	workout models.Workout
}

// LoadState returns the plan meta, the valid scheduled workouts in schedule
// order and the completed history.
func (s *Service) LoadState(ctx context.Context) (*models.StatePayload, error) {
	meta, active, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := s.store.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing completed workouts: %w", err)
	}

	payload := &models.StatePayload{
		Meta:              meta,
		Workouts:          make([]models.Workout, 0, len(active)),
		CompletedWorkouts: completed,
	}
	if payload.CompletedWorkouts == nil {
		payload.CompletedWorkouts = []models.CompletedEntry{}
	}
	for _, a := range active {
		payload.Workouts = append(payload.Workouts, a.workout)
	}
	return payload, nil
}

// CompleteWorkout archives the scheduled workout matching id (and date, when
// given) and returns the updated state.
func (s *Service) CompleteWorkout(ctx context.Context, id, date string) (*models.StatePayload, error) {
	id, date = strings.TrimSpace(id), strings.TrimSpace(date)
	if id == "" {
		return nil, ErrMissingID
	}

	_, active, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(active, func(a scheduled) bool {
		return a.workout.ID == id && (date == "" || a.workout.Date == date)
	})
	if idx < 0 {
		return nil, ErrNotFound
	}
	target := active[idx]

	entry := s.completedEntry(target)
	if err := s.store.ArchiveWorkout(ctx, target.seq, entry); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// archived concurrently
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archiving workout %s: %w", id, err)
	}
	s.log.Info("workout completed", "id", id, "scheduled_date", target.workout.Date, "entry", entry.ID)

	return s.LoadState(ctx)
}

func (s *Service) completedEntry(target scheduled) models.CompletedEntry {
	now := s.now()
	title := target.workout.Title
	if title == "" {
		title = untitled
	}
	return models.CompletedEntry{
		ID:            uuid.NewString(),
		Day:           now.Format("Monday"),
		Date:          now.Format(models.DateLayout),
		Title:         title,
		ScheduledDate: target.workout.Date,
		CompletedAt:   now.Format(completedAtLayout),
		Workout:       target.doc,
	}
}

// Completed returns the completed history, newest first.
func (s *Service) Completed(ctx context.Context) ([]models.CompletedEntry, error) {
	entries, err := s.store.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing completed workouts: %w", err)
	}
	slices.Reverse(entries)
	if entries == nil {
		entries = []models.CompletedEntry{}
	}
	return entries, nil
}

// CompletedEntry returns one completed entry.
func (s *Service) CompletedEntry(ctx context.Context, id string) (*models.CompletedEntry, error) {
	e, err := s.store.GetCompleted(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return e, err
}

// ImportLogs returns recent plan imports, newest first.
func (s *Service) ImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error) {
	return s.store.QueryImportLogs(ctx, limit)
}

// active loads the stored plan and returns the valid workouts in schedule order.
func (s *Service) active(ctx context.Context) (json.RawMessage, []scheduled, error) {
	plan, err := s.store.LoadPlan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading plan: %w", err)
	}

	meta := plan.Meta
	if len(meta) == 0 {
		meta = models.DefaultMeta
	}

	var out []scheduled
	for _, row := range plan.Workouts {
		var w models.Workout
		if err := json.Unmarshal(row.Doc, &w); err != nil {
			s.log.Debug("skipping undecodable workout", "seq", row.Seq, "error", err)
			continue
		}
		if err := models.ValidateWorkout(w); err != nil {
			s.log.Debug("skipping invalid workout", "seq", row.Seq, "id", w.ID, "error", err)
			continue
		}
		out = append(out, scheduled{seq: row.Seq, doc: row.Doc, workout: w})
	}

	SortBySchedule(out, func(a scheduled) string { return a.workout.Date }, s.now())
	return meta, out, nil
}

// SortBySchedule orders items by date relative to today: today first, then
// upcoming dates nearest first, then past dates most recent first. Items with
// equal keys keep their order. Unparseable dates sort last.
func SortBySchedule[T any](items []T, date func(T) string, now time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	type key struct{ bucket, days int }
	keyOf := func(item T) key {
		d, err := time.Parse(models.DateLayout, date(item))
		if err != nil {
			return key{3, 0}
		}
		days := int(d.Sub(today).Hours() / 24)
		switch {
		case days == 0:
			return key{0, 0}
		case days > 0:
			return key{1, days}
		default:
			return key{2, -days}
		}
	}

	slices.SortStableFunc(items, func(a, b T) int {
		ka, kb := keyOf(a), keyOf(b)
		if ka.bucket != kb.bucket {
			return ka.bucket - kb.bucket
		}
		return ka.days - kb.days
	})
}
