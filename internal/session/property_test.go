package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/claude/circuit/internal/clock"
	"github.com/claude/circuit/internal/models"
)

func drawWorkout(rt *rapid.T) models.Workout {
	n := rapid.IntRange(1, 5).Draw(rt, "exercises")
	w := models.Workout{
		ID:                 "prop",
		Date:               "2026-03-02",
		Title:              "Property",
		Rounds:             rapid.IntRange(1, 4).Draw(rt, "rounds"),
		DefaultRestSeconds: rapid.IntRange(0, 30).Draw(rt, "defaultRest"),
	}
	for i := range n {
		ex := models.Exercise{
			Name:        string(rune('A' + i)),
			WorkSeconds: models.IntPtr(rapid.IntRange(1, 60).Draw(rt, "work")),
		}
		switch rapid.IntRange(0, 2).Draw(rt, "restKind") {
		case 1:
			ex.RestSeconds = models.IntPtr(0)
		case 2:
			ex.RestSeconds = models.IntPtr(rapid.IntRange(1, 30).Draw(rt, "rest"))
		}
		w.Exercises = append(w.Exercises, ex)
	}
	return w
}

func startedController(rt *rapid.T, w models.Workout) *Controller {
	c := New(clock.NewFake(), &fakeStore{state: &models.StatePayload{Workouts: []models.Workout{w}}})
	require.NoError(rt, c.Load(context.Background(), false))
	c.Start()
	return c
}

// phasesPerRound counts the phases one round contains: every exercise has a
// work phase and a rest phase only when its rest is positive.
func phasesPerRound(w models.Workout) int {
	n := 0
	for _, ex := range w.Exercises {
		n++
		if RestSeconds(w, ex) > 0 {
			n++
		}
	}
	return n
}

// TestProperty_SkipsReachCompletion verifies that skipping through a workout
// takes exactly one skip per phase, which is R*E when no exercise rests.
func TestProperty_SkipsReachCompletion(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := drawWorkout(rt)
		if rapid.Bool().Draw(rt, "noRest") {
			w.DefaultRestSeconds = 0
			for i := range w.Exercises {
				w.Exercises[i].RestSeconds = nil
			}
		}
		c := startedController(rt, w)

		want := phasesPerRound(w) * w.RoundCount()
		for i := 1; i < want; i++ {
			c.Skip()
			require.NotEqual(rt, StatusPendingCompletion, c.Snapshot().Status(), "completed early after %d skips", i)
		}
		c.Skip()
		require.Equal(rt, StatusPendingCompletion, c.Snapshot().Status(), "after %d skips", want)

		if phasesPerRound(w) == len(w.Exercises) {
			require.Equal(rt, w.RoundCount()*len(w.Exercises), want)
		}
	})
}

// TestProperty_BackSkipRoundTrip verifies that back then skip, and skip then
// back, return to the same work position away from the boundaries.
func TestProperty_BackSkipRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := drawWorkout(rt)
		total := phasesPerRound(w) * w.RoundCount()
		if total < 3 {
			rt.Skip("too few phases to leave the boundaries")
		}
		steps := rapid.IntRange(1, total-2).Draw(rt, "steps")

		c := startedController(rt, w)
		for range steps {
			c.Skip()
		}
		before := c.Snapshot()
		if before.Phase != PhaseWork {
			// rest positions step back to their own work, not a round trip
			c.Skip()
			before = c.Snapshot()
		}
		if before.Status() != StatusRunning || (before.ExerciseIndex == 0 && before.Round == 1) {
			rt.Skip("landed on a boundary")
		}

		c.Back()
		c.Skip()
		after := c.Snapshot()
		require.Equal(rt, PhaseWork, after.Phase)
		require.Equal(rt, before.ExerciseIndex, after.ExerciseIndex, "back then skip")
		require.Equal(rt, before.Round, after.Round, "back then skip")

		c.Skip()
		if c.Snapshot().Status() == StatusPendingCompletion {
			return
		}
		c.Back()
		after = c.Snapshot()
		require.Equal(rt, PhaseWork, after.Phase)
		require.Equal(rt, before.ExerciseIndex, after.ExerciseIndex, "skip then back")
		require.Equal(rt, before.Round, after.Round, "skip then back")
		require.Equal(rt, WorkSeconds(w.Exercises[after.ExerciseIndex]), after.Remaining)
	})
}

// TestProperty_TimingHelpersNonNegative verifies the time lookups never go
// negative and honour explicit zero rest.
func TestProperty_TimingHelpersNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ex := models.Exercise{Name: "x"}
		if rapid.Bool().Draw(rt, "hasWork") {
			ex.WorkSeconds = models.IntPtr(rapid.IntRange(-10, 100).Draw(rt, "work"))
		}
		if rapid.Bool().Draw(rt, "hasDuration") {
			ex.DurationSeconds = models.IntPtr(rapid.IntRange(-10, 100).Draw(rt, "duration"))
		}
		if rapid.Bool().Draw(rt, "hasRest") {
			ex.RestSeconds = models.IntPtr(rapid.IntRange(-10, 100).Draw(rt, "rest"))
		}
		w := models.Workout{DefaultRestSeconds: rapid.IntRange(0, 60).Draw(rt, "default"), Exercises: []models.Exercise{ex}}

		require.GreaterOrEqual(rt, WorkSeconds(ex), 0)
		require.GreaterOrEqual(rt, RestSeconds(w, ex), 0)

		switch {
		case ex.WorkSeconds != nil:
			require.Equal(rt, max(*ex.WorkSeconds, 0), WorkSeconds(ex))
		case ex.DurationSeconds != nil:
			require.Equal(rt, max(*ex.DurationSeconds, 0), WorkSeconds(ex))
		default:
			require.Equal(rt, 0, WorkSeconds(ex))
		}
		if ex.RestSeconds != nil {
			require.Equal(rt, max(*ex.RestSeconds, 0), RestSeconds(w, ex))
		} else {
			require.Equal(rt, w.DefaultRestSeconds, RestSeconds(w, ex))
		}
	})
}
