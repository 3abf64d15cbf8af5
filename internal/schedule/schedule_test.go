package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/storage"
)

// memStore is an in-memory Store.
type memStore struct {
	meta      json.RawMessage
	rows      []storage.ScheduledWorkout
	completed []models.CompletedEntry
	logs      []storage.ImportLog
	nextSeq   int64
	failLoad  error
}

func (m *memStore) ReplacePlan(ctx context.Context, meta json.RawMessage, workouts []storage.ScheduledWorkout) error {
	m.meta = meta
	m.rows = nil
	for i, w := range workouts {
		m.nextSeq++
		w.Seq, w.Position = m.nextSeq, i
		m.rows = append(m.rows, w)
	}
	return nil
}

func (m *memStore) LoadPlan(ctx context.Context) (*storage.Plan, error) {
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	return &storage.Plan{Meta: m.meta, Workouts: append([]storage.ScheduledWorkout(nil), m.rows...)}, nil
}

func (m *memStore) ArchiveWorkout(ctx context.Context, seq int64, entry models.CompletedEntry) error {
	for i, r := range m.rows {
		if r.Seq == seq {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			m.completed = append(m.completed, entry)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ListCompleted(ctx context.Context) ([]models.CompletedEntry, error) {
	return append([]models.CompletedEntry(nil), m.completed...), nil
}

func (m *memStore) GetCompleted(ctx context.Context, id string) (*models.CompletedEntry, error) {
	for _, e := range m.completed {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error) {
	log.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, log)
	return log.ID, nil
}

func (m *memStore) UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error {
	log.ID = id
	log.Source = m.logs[id-1].Source
	m.logs[id-1] = log
	return nil
}

func (m *memStore) QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error) {
	return m.logs, nil
}

var fixedNow = time.Date(2026, 3, 4, 18, 45, 10, 0, time.Local)

func newTestService(store *memStore) *Service {
	s := New(store, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func workoutDoc(id, date, title string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%q,"date":%q,"title":%q,"rounds":1,"exercises":[{"name":"Squat","work_seconds":30}],"coach_note":"x"}`,
		id, date, title))
}

func planOf(docs ...json.RawMessage) models.PlanDocument {
	return models.PlanDocument{Meta: json.RawMessage(`{"name":"Week"}`), Workouts: docs}
}

// TestLoadStateSortsBySchedule verifies today first, upcoming nearest first,
// then past most recent first.
func TestLoadStateSortsBySchedule(t *testing.T) {
	store := &memStore{}
	s := newTestService(store)
	_, err := s.ReplacePlan(context.Background(), "test", planOf(
		workoutDoc("past-far", "2026-02-20", "Past far"),
		workoutDoc("future-far", "2026-03-10", "Future far"),
		workoutDoc("today", "2026-03-04", "Today"),
		workoutDoc("past-near", "2026-03-03", "Past near"),
		workoutDoc("future-near", "2026-03-05", "Future near"),
	))
	if err != nil {
		t.Fatal(err)
	}

	state, err := s.LoadState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"today", "future-near", "future-far", "past-near", "past-far"}
	if len(state.Workouts) != len(want) {
		t.Fatalf("got %d workouts, want %d", len(state.Workouts), len(want))
	}
	for i, id := range want {
		if state.Workouts[i].ID != id {
			t.Errorf("workouts[%d] = %s, want %s", i, state.Workouts[i].ID, id)
		}
	}
	if string(state.Meta) != `{"name":"Week"}` {
		t.Errorf("meta = %s", state.Meta)
	}
	if state.CompletedWorkouts == nil {
		t.Error("completed_workouts is nil, want empty list")
	}
}

// TestLoadStateFiltersInvalid verifies rows that fail decoding or validation
// are hidden, and missing meta falls back to the default.
func TestLoadStateFiltersInvalid(t *testing.T) {
	store := &memStore{rows: []storage.ScheduledWorkout{
		{Seq: 1, Doc: workoutDoc("ok", "2026-03-04", "Fine")},
		{Seq: 2, Doc: workoutDoc("no-title", "2026-03-04", " ")},
		{Seq: 3, Doc: workoutDoc("bad-date", "03/04/2026", "Bad date")},
		{Seq: 4, Doc: json.RawMessage(`{"id":"no-ex","date":"2026-03-04","title":"Empty","exercises":[]}`)},
		{Seq: 5, Doc: json.RawMessage(`"not an object"`)},
	}}
	state, err := newTestService(store).LoadState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Workouts) != 1 || state.Workouts[0].ID != "ok" {
		t.Errorf("workouts = %+v", state.Workouts)
	}
	if string(state.Meta) != string(models.DefaultMeta) {
		t.Errorf("meta = %s", state.Meta)
	}
}

// TestCompleteWorkout verifies the archived entry fields and that the
// workout leaves the schedule.
func TestCompleteWorkout(t *testing.T) {
	store := &memStore{}
	s := newTestService(store)
	doc := workoutDoc("w1", "2026-03-02", "Strength")
	if _, err := s.ReplacePlan(context.Background(), "test", planOf(doc, workoutDoc("w2", "2026-03-05", "Cardio"))); err != nil {
		t.Fatal(err)
	}

	state, err := s.CompleteWorkout(context.Background(), " w1 ", "2026-03-02")
	if err != nil {
		t.Fatalf("CompleteWorkout: %v", err)
	}
	if len(state.Workouts) != 1 || state.Workouts[0].ID != "w2" {
		t.Errorf("remaining = %+v", state.Workouts)
	}
	if len(state.CompletedWorkouts) != 1 {
		t.Fatalf("completed = %+v", state.CompletedWorkouts)
	}
	e := state.CompletedWorkouts[0]
	if e.Day != "Wednesday" || e.Date != "2026-03-04" || e.CompletedAt != "2026-03-04 18:45:10" {
		t.Errorf("timestamps = %q %q %q", e.Day, e.Date, e.CompletedAt)
	}
	if e.Title != "Strength" || e.ScheduledDate != "2026-03-02" || e.ID == "" {
		t.Errorf("entry = %+v", e)
	}
	if string(e.Workout) != string(doc) {
		t.Errorf("embedded workout = %s", e.Workout)
	}
}

// TestCompleteWorkoutErrors covers missing id, unknown id and a date mismatch.
func TestCompleteWorkoutErrors(t *testing.T) {
	store := &memStore{}
	s := newTestService(store)
	if _, err := s.ReplacePlan(context.Background(), "test", planOf(workoutDoc("w1", "2026-03-02", "Strength"))); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		id, date string
		want     error
	}{
		{"blank id", "  ", "", ErrMissingID},
		{"unknown id", "nope", "", ErrNotFound},
		{"date mismatch", "w1", "2026-03-03", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CompleteWorkout(context.Background(), tt.id, tt.date); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	// id alone matches regardless of date
	if _, err := s.CompleteWorkout(context.Background(), "w1", ""); err != nil {
		t.Errorf("id-only completion: %v", err)
	}
}

// TestReplacePlanReportsRejections verifies invalid workouts are dropped,
// reported and recorded in the import log.
func TestReplacePlanReportsRejections(t *testing.T) {
	store := &memStore{}
	s := newTestService(store)

	res, err := s.ReplacePlan(context.Background(), "api", planOf(
		workoutDoc("ok", "2026-03-04", "Fine"),
		workoutDoc("bad", "not-a-date", "Bad"),
		json.RawMessage(`[1,2]`),
	))
	if err != nil {
		t.Fatal(err)
	}
	if res.Received != 3 || res.Accepted != 1 || len(res.Rejected) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Rejected[0].Index != 1 || res.Rejected[0].ID != "bad" {
		t.Errorf("rejection = %+v", res.Rejected[0])
	}
	if len(store.rows) != 1 {
		t.Errorf("stored %d rows, want 1", len(store.rows))
	}
	if len(store.logs) != 1 || store.logs[0].Status != storage.ImportSuccess || store.logs[0].Source != "api" || store.logs[0].WorkoutsAccepted != 1 {
		t.Errorf("import log = %+v", store.logs)
	}
}

// TestReplacePlanRefusesAllInvalid verifies a plan with no valid workouts
// keeps the current schedule.
func TestReplacePlanRefusesAllInvalid(t *testing.T) {
	store := &memStore{}
	s := newTestService(store)
	if _, err := s.ReplacePlan(context.Background(), "file", planOf(workoutDoc("keep", "2026-03-04", "Keep"))); err != nil {
		t.Fatal(err)
	}

	_, err := s.ReplacePlan(context.Background(), "file", planOf(workoutDoc("bad", "", "Bad")))
	if !errors.Is(err, ErrNoValidWorkouts) {
		t.Fatalf("err = %v, want ErrNoValidWorkouts", err)
	}
	if len(store.rows) != 1 || store.rows[0].WorkoutID != "keep" {
		t.Errorf("schedule changed: %+v", store.rows)
	}
	if last := store.logs[len(store.logs)-1]; last.Status != storage.ImportError || last.ErrorMessage == nil {
		t.Errorf("import log = %+v", last)
	}

	// an empty plan is an explicit clear
	if _, err := s.ReplacePlan(context.Background(), "file", planOf()); err != nil {
		t.Fatal(err)
	}
	if len(store.rows) != 0 {
		t.Errorf("rows = %d after empty plan", len(store.rows))
	}
}

// TestCompletedNewestFirst verifies the history listing order.
func TestCompletedNewestFirst(t *testing.T) {
	store := &memStore{completed: []models.CompletedEntry{{ID: "1", Title: "old"}, {ID: "2", Title: "new"}}}
	s := newTestService(store)
	got, err := s.Completed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "new" {
		t.Errorf("completed = %+v", got)
	}
	if _, err := s.CompletedEntry(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompletedEntry err = %v", err)
	}
}

// TestSortByScheduleUnparseableLast verifies bad dates sink to the end.
func TestSortByScheduleUnparseableLast(t *testing.T) {
	dates := []string{"garbage", "2026-03-01", "2026-03-04"}
	SortBySchedule(dates, func(s string) string { return s }, fixedNow)
	want := []string{"2026-03-04", "2026-03-01", "garbage"}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates = %v, want %v", dates, want)
			break
		}
	}
}
