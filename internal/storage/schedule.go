package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/claude/circuit/internal/models"
)

// ScheduledWorkout is one stored workout document. The indexed columns are
// copied out of Doc at write time; Doc is kept verbatim.
type ScheduledWorkout struct {
	Seq           int64
	Position      int
	WorkoutID     string
	ScheduledDate string
	Title         string
	Doc           json.RawMessage
}

// Plan is the stored plan: generator metadata plus the workouts in the order
// they were written.
type Plan struct {
	Meta      json.RawMessage
	Workouts  []ScheduledWorkout
	UpdatedAt time.Time
}

func metaOrDefault(meta json.RawMessage) json.RawMessage {
	if len(meta) == 0 || string(meta) == "null" {
		return models.DefaultMeta
	}
	return meta
}

func nullableJSON(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

// validEntryID reports whether id can be a completed-entry key. Entries are
// keyed by UUID, so anything else cannot match.
func validEntryID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
