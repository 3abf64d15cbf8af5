package session

import (
	"context"
	"fmt"

	"github.com/claude/circuit/internal/models"
)

// Phase is the sub-interval of one exercise repetition.
type Phase string

const (
	PhaseWork Phase = "work"
	PhaseRest Phase = "rest"
)

// ViewMode selects between the plan overview and the live player. It never
// affects timing.
type ViewMode string

const (
	ViewPlan ViewMode = "plan"
	ViewLive ViewMode = "live"
)

// Status is the machine state derived from the run flags.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusPendingCompletion
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusPendingCompletion:
		return "pending_completion"
	default:
		return "unknown"
	}
}

// State is a snapshot of a session. Controller owns the live copy and hands
// out value copies. Workouts, Completed and Workout are shared with the
// controller, which only ever replaces them, so holders must treat them as
// read-only.
type State struct {
	Workouts  []models.Workout
	Completed []models.CompletedEntry

	// SelectedIndex is -1 when no workout is selected.
	SelectedIndex int
	Workout       *models.Workout

	Phase         Phase
	ExerciseIndex int
	Round         int
	Remaining     int

	Running           bool
	Paused            bool
	PendingCompletion bool

	ViewMode     ViewMode
	Message      string
	MessageIsErr bool
}

// Status derives the machine state from the run flags.
func (s State) Status() Status {
	switch {
	case s.PendingCompletion:
		return StatusPendingCompletion
	case s.Running && s.Paused:
		return StatusPaused
	case s.Running:
		return StatusRunning
	default:
		return StatusIdle
	}
}

// CurrentExercise returns the exercise at ExerciseIndex, or the zero value.
func (s State) CurrentExercise() models.Exercise {
	return exerciseAt(s.Workout, s.ExerciseIndex)
}

func initialState() State {
	return State{
		SelectedIndex: -1,
		Phase:         PhaseWork,
		Round:         1,
		ViewMode:      ViewPlan,
	}
}

// Clock arms a periodic callback. Starting replaces any armed callback and
// Stop is idempotent.
type Clock interface {
	Start(fn func())
	Stop()
}

// Persistence loads workouts and archives completed ones.
type Persistence interface {
	LoadState(ctx context.Context) (*models.StatePayload, error)
	CompleteWorkout(ctx context.Context, id, date string) (*models.StatePayload, error)
}

// Alerter plays the phase-change cue. Implementations swallow their own
// failures.
type Alerter interface {
	Alert()
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func()

func (f AlertFunc) Alert() { f() }

type nopAlerter struct{}

func (nopAlerter) Alert() {}

// LoadError reports a failed state fetch. The session keeps its last-known state.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("loading workouts: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// CompletionError reports a failed archive call. The session stays pending
// and the call may be retried.
type CompletionError struct {
	WorkoutID string
	Err       error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completing workout %q: %v", e.WorkoutID, e.Err)
}
func (e *CompletionError) Unwrap() error { return e.Err }
