package session

import "github.com/claude/circuit/internal/models"

// WorkSeconds returns the work-phase length of an exercise: work_seconds when
// present, else duration_seconds, else zero. Never negative.
func WorkSeconds(ex models.Exercise) int {
	switch {
	case ex.WorkSeconds != nil:
		return max(*ex.WorkSeconds, 0)
	case ex.DurationSeconds != nil:
		return max(*ex.DurationSeconds, 0)
	}
	return 0
}

// RestSeconds returns the rest after an exercise. An explicit rest_seconds wins
// even when zero; otherwise the workout default applies.
func RestSeconds(w models.Workout, ex models.Exercise) int {
	if ex.RestSeconds != nil {
		return max(*ex.RestSeconds, 0)
	}
	return max(w.DefaultRestSeconds, 0)
}

// PreviousPosition returns the exercise index and round one step behind the
// given position. The first exercise of round one has no predecessor and maps
// to itself.
func PreviousPosition(w models.Workout, index, round int) (int, int) {
	if index > 0 {
		return index - 1, round
	}
	if round > 1 {
		return max(len(w.Exercises)-1, 0), round - 1
	}
	return 0, 1
}

// PeekNext returns the exercise after index, wrapping to the first one. It is
// a look-ahead for display only.
func PeekNext(w models.Workout, index int) (models.Exercise, bool) {
	if len(w.Exercises) == 0 {
		return models.Exercise{}, false
	}
	return w.Exercises[(index+1)%len(w.Exercises)], true
}

// EstimateSeconds is the planned length of a workout: every exercise's work
// and rest, times the round count.
func EstimateSeconds(w models.Workout) int {
	perRound := 0
	for _, ex := range w.Exercises {
		perRound += WorkSeconds(ex) + RestSeconds(w, ex)
	}
	return perRound * w.RoundCount()
}

func exerciseAt(w *models.Workout, index int) models.Exercise {
	if w == nil || index < 0 || index >= len(w.Exercises) {
		return models.Exercise{}
	}
	return w.Exercises[index]
}
