// Package session implements the interval-workout player: a controller that
// owns the session state and moves it through work/rest phases, exercises and
// rounds in response to clock ticks and user commands.
package session

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/claude/circuit/internal/models"
)

const (
	msgReloaded = "Workouts reloaded."
	msgSaved    = "Workout saved to completed history."
	msgPaused   = "Workout paused. Review plan, then resume when ready."
)

// Controller owns a single session. All methods are safe to call from the UI
// goroutine and the clock goroutine; mutations are serialised and listeners
// are notified with value snapshots after the lock is released.
type Controller struct {
	mu       sync.Mutex
	state    State
	clock    Clock
	store    Persistence
	alert    Alerter
	log      *slog.Logger
	listener func(State)

	// epoch tags each arming of the clock so a tick from a disarmed timer
	// that is already waiting on mu is dropped.
	epoch      uint64
	alerts     int
	completing bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithAlerter sets the phase-change cue.
func WithAlerter(a Alerter) Option {
	return func(c *Controller) { c.alert = a }
}

// WithLogger sets the logger used for transition logs.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithListener registers fn to receive a snapshot after every state change.
func WithListener(fn func(State)) Option {
	return func(c *Controller) { c.listener = fn }
}

// New creates a controller in the initial plan state with no workouts loaded.
func New(clock Clock, store Persistence, opts ...Option) *Controller {
	c := &Controller{
		state: initialState(),
		clock: clock,
		store: store,
		alert: nopAlerter{},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches workouts and history and applies them. With announce set a
// successful reload is reported on the status line.
func (c *Controller) Load(ctx context.Context, announce bool) error {
	payload, err := c.store.LoadState(ctx)
	if err != nil {
		lerr := &LoadError{Err: err}
		c.log.Warn("load state failed", "error", err)
		c.do(func() bool {
			c.setMessage(lerr.Error(), true)
			return true
		})
		return lerr
	}
	c.do(func() bool {
		c.applyLocked(payload)
		if announce {
			c.setMessage(msgReloaded, false)
		}
		return true
	})
	return nil
}

// Select chooses the workout at index (clamped to the list). Re-selecting the
// workout of an active session returns to the live view without losing
// progress; any other choice loads the workout and resets to idle.
func (c *Controller) Select(index int) {
	c.do(func() bool {
		s := &c.state
		if len(s.Workouts) == 0 {
			return false
		}
		bounded := min(max(index, 0), len(s.Workouts)-1)
		candidate := s.Workouts[bounded]

		same := s.Workout != nil &&
			bounded == s.SelectedIndex &&
			s.Workout.ID == candidate.ID &&
			s.Workout.Date == candidate.Date
		if same && s.Status() != StatusIdle {
			s.ViewMode = ViewLive
			c.setMessage("", false)
			return true
		}

		s.SelectedIndex = bounded
		s.Workout = &candidate
		c.resetLocked()
		return true
	})
}

// Start begins the selected workout from its first exercise. Only valid when idle.
func (c *Controller) Start() {
	c.do(func() bool {
		s := &c.state
		if s.Workout == nil || len(s.Workout.Exercises) == 0 || s.Status() != StatusIdle {
			return false
		}
		c.disarmLocked()
		s.Running = true
		s.Paused = false
		s.PendingCompletion = false
		s.Phase = PhaseWork
		s.ExerciseIndex = 0
		s.Round = 1
		s.Remaining = WorkSeconds(s.CurrentExercise())
		s.ViewMode = ViewLive
		c.setMessage("", false)
		c.armLocked()
		c.log.Info("workout started", "workout", s.Workout.ID, "date", s.Workout.Date)
		return true
	})
}

// Pause stops the clock of a running session.
func (c *Controller) Pause() {
	c.do(func() bool {
		s := &c.state
		if s.Status() != StatusRunning {
			return false
		}
		s.Paused = true
		c.disarmLocked()
		c.setMessage("", false)
		return true
	})
}

// Resume re-arms the clock of a paused session.
func (c *Controller) Resume() {
	c.do(func() bool {
		if c.state.Status() != StatusPaused {
			return false
		}
		c.resumeLocked()
		return true
	})
}

// Reset returns to idle at the start of the selected workout.
func (c *Controller) Reset() {
	c.do(func() bool {
		c.resetLocked()
		return true
	})
}

// Skip ends the current phase immediately. It is accepted whenever the
// session is running, paused or not; a paused session advances but stays paused.
func (c *Controller) Skip() {
	c.do(func() bool {
		if !c.state.Running {
			return false
		}
		c.disarmLocked()
		c.state.Remaining = 0
		c.advanceLocked()
		return true
	})
}

// Back steps to the previous phase: rest goes back to the same exercise's
// work, work goes back to the previous exercise (its rest when it has one).
func (c *Controller) Back() {
	c.do(func() bool {
		s := &c.state
		if s.Workout == nil || (!s.Running && !s.Paused) {
			return false
		}
		c.disarmLocked()

		switch {
		case s.Phase == PhaseWork && s.ExerciseIndex == 0 && s.Round == 1:
			s.Remaining = WorkSeconds(s.CurrentExercise())
		case s.Phase == PhaseRest:
			s.Phase = PhaseWork
			s.Remaining = WorkSeconds(s.CurrentExercise())
		default:
			s.ExerciseIndex, s.Round = PreviousPosition(*s.Workout, s.ExerciseIndex, s.Round)
			if rest := RestSeconds(*s.Workout, s.CurrentExercise()); rest > 0 {
				s.Phase = PhaseRest
				s.Remaining = rest
			} else {
				s.Phase = PhaseWork
				s.Remaining = WorkSeconds(s.CurrentExercise())
			}
		}

		c.rearmLocked()
		return true
	})
}

// Tick advances the countdown by one second.
func (c *Controller) Tick() {
	c.do(c.tickLocked)
}

// BackToPlan switches to the plan overview, pausing a running session.
func (c *Controller) BackToPlan() {
	c.do(func() bool {
		s := &c.state
		if s.Workout == nil {
			return false
		}
		if s.Status() == StatusRunning {
			s.Paused = true
			c.disarmLocked()
			c.setMessage(msgPaused, false)
		}
		s.ViewMode = ViewPlan
		return true
	})
}

// ResumeFromPlan returns from the plan overview to the live player, resuming
// a session that BackToPlan paused.
func (c *Controller) ResumeFromPlan() {
	c.do(func() bool {
		s := &c.state
		if s.Workout == nil {
			return false
		}
		switch s.Status() {
		case StatusPaused:
			c.resumeLocked()
		case StatusRunning, StatusPendingCompletion:
			s.ViewMode = ViewLive
			c.setMessage("", false)
		default:
			return false
		}
		return true
	})
}

// ConfirmCompletion archives a finished workout. The network call runs
// without holding the session; on failure the session stays pending and the
// call may be retried.
func (c *Controller) ConfirmCompletion(ctx context.Context) error {
	c.mu.Lock()
	s := c.state
	if !s.PendingCompletion || s.Workout == nil || c.completing {
		c.mu.Unlock()
		return nil
	}
	id, date := s.Workout.ID, s.Workout.Date
	c.completing = true
	c.mu.Unlock()

	payload, err := c.store.CompleteWorkout(ctx, id, date)
	if err != nil {
		cerr := &CompletionError{WorkoutID: id, Err: err}
		c.log.Warn("complete workout failed", "workout", id, "error", err)
		c.do(func() bool {
			c.completing = false
			c.setMessage(cerr.Error(), true)
			return true
		})
		return cerr
	}

	c.log.Info("workout archived", "workout", id, "date", date)
	c.do(func() bool {
		c.completing = false
		c.state.PendingCompletion = false
		c.applyLocked(payload)
		c.setMessage(msgSaved, false)
		return true
	})
	return nil
}

// do runs fn under the lock, then fires queued alerts and notifies the
// listener when fn reports a change.
func (c *Controller) do(fn func() bool) {
	c.mu.Lock()
	changed := fn()
	alerts := c.alerts
	c.alerts = 0
	snap := c.state
	listener := c.listener
	c.mu.Unlock()

	for range alerts {
		c.alert.Alert()
	}
	if changed && listener != nil {
		listener(snap)
	}
}

func (c *Controller) onClockTick(epoch uint64) {
	c.do(func() bool {
		if epoch != c.epoch {
			return false
		}
		return c.tickLocked()
	})
}

func (c *Controller) tickLocked() bool {
	s := &c.state
	if !s.Running || s.Paused {
		return false
	}
	s.Remaining--
	if s.Remaining <= 0 {
		c.advanceLocked()
	}
	return true
}

// advanceLocked ends the current phase: work with rest moves to rest,
// anything else moves to the next exercise.
func (c *Controller) advanceLocked() {
	s := &c.state
	if s.Workout == nil {
		return
	}
	c.alerts++

	if s.Phase == PhaseWork {
		if rest := RestSeconds(*s.Workout, s.CurrentExercise()); rest > 0 {
			s.Phase = PhaseRest
			s.Remaining = rest
			c.rearmLocked()
			return
		}
	}
	c.nextExerciseLocked()
}

func (c *Controller) nextExerciseLocked() {
	s := &c.state
	w := s.Workout

	s.ExerciseIndex++
	if s.ExerciseIndex >= len(w.Exercises) {
		s.ExerciseIndex = 0
		s.Round++
	}

	if s.Round > w.RoundCount() {
		c.disarmLocked()
		s.Running = false
		s.Paused = false
		s.Remaining = 0
		s.PendingCompletion = true
		// park on the final position; the round counter only overflows to
		// detect the end
		s.Round = w.RoundCount()
		s.ExerciseIndex = max(len(w.Exercises)-1, 0)
		c.alerts++
		c.log.Info("workout finished, awaiting confirmation", "workout", w.ID)
		return
	}

	s.Phase = PhaseWork
	s.Remaining = WorkSeconds(s.CurrentExercise())
	c.rearmLocked()
}

func (c *Controller) resumeLocked() {
	s := &c.state
	s.Paused = false
	s.ViewMode = ViewLive
	c.setMessage("", false)
	c.armLocked()
}

func (c *Controller) resetLocked() {
	c.disarmLocked()
	s := &c.state
	s.Running = false
	s.Paused = false
	s.PendingCompletion = false
	s.Phase = PhaseWork
	s.ExerciseIndex = 0
	s.Round = 1
	s.Remaining = 0
	s.ViewMode = ViewPlan
	c.setMessage("", false)
}

// applyLocked replaces the workout list and history with a server payload,
// keeping an active session's progress when its workout is still scheduled
// and the current position still exists in the new version of it.
func (c *Controller) applyLocked(p *models.StatePayload) {
	s := &c.state
	prevKey := ""
	if s.Workout != nil && s.Workout.ID != "" {
		prevKey = s.Workout.Key()
	}

	s.Workouts = p.Workouts
	s.Completed = p.CompletedWorkouts

	if len(s.Workouts) == 0 {
		s.SelectedIndex = -1
		s.Workout = nil
		c.resetLocked()
		return
	}

	found := -1
	if prevKey != "" {
		for i, w := range s.Workouts {
			if w.Key() == prevKey {
				found = i
				break
			}
		}
	}

	if found >= 0 && s.Status() != StatusIdle &&
		s.ExerciseIndex < len(s.Workouts[found].Exercises) &&
		s.Round <= s.Workouts[found].RoundCount() {
		w := s.Workouts[found]
		s.SelectedIndex = found
		s.Workout = &w
		return
	}

	index := max(found, 0)
	w := s.Workouts[index]
	s.SelectedIndex = index
	s.Workout = &w
	c.resetLocked()
}

func (c *Controller) armLocked() {
	c.epoch++
	epoch := c.epoch
	c.clock.Start(func() { c.onClockTick(epoch) })
}

func (c *Controller) disarmLocked() {
	c.epoch++
	c.clock.Stop()
}

// rearmLocked restarts the clock from scratch after a timing change, or
// leaves it stopped when the session is not ticking.
func (c *Controller) rearmLocked() {
	if c.state.Running && !c.state.Paused {
		c.armLocked()
		return
	}
	c.disarmLocked()
}

func (c *Controller) setMessage(msg string, isErr bool) {
	c.state.Message = msg
	c.state.MessageIsErr = isErr
}
