package models

import "encoding/json"

// CompletedEntry is one archived workout in the completed history.
type CompletedEntry struct {
	ID            string          `json:"id,omitempty"`
	Day           string          `json:"day"`
	Date          string          `json:"date"`
	Title         string          `json:"title"`
	ScheduledDate string          `json:"scheduled_date"`
	CompletedAt   string          `json:"completed_at"`
	Workout       json.RawMessage `json:"workout,omitempty"`
}

// StatePayload is the body of GET /api/state and POST /api/complete.
type StatePayload struct {
	Meta              json.RawMessage  `json:"meta,omitempty"`
	Workouts          []Workout        `json:"workouts"`
	CompletedWorkouts []CompletedEntry `json:"completed_workouts"`
}

// CompletionRequest is the body of POST /api/complete.
type CompletionRequest struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// PlanDocument is the document written by the plan generator. Workouts are
// kept raw so fields this service does not model survive storage.
type PlanDocument struct {
	Meta     json.RawMessage   `json:"meta,omitempty"`
	Workouts []json.RawMessage `json:"workouts"`
}

// DefaultMeta is returned when no plan metadata has been stored yet.
var DefaultMeta = json.RawMessage(`{"name":"Workout Config","version":1,"notes":"Generated workouts"}`)
