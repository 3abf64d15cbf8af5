// Package view projects a session snapshot into display-ready text. It has no
// UI toolkit dependency; the terminal player renders the ViewModel it returns.
package view

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/session"
)

// Badge is the phase label shown above the timer.
type Badge string

const (
	BadgeReady    Badge = "READY"
	BadgeWork     Badge = "WORK"
	BadgeRest     Badge = "REST"
	BadgeComplete Badge = "COMPLETE"
)

const noInstructions = "No instructions provided."

var (
	emptyListInstructions = []string{
		"No active workouts found.",
		"Use your LLM prompt with completed history to generate a new week.",
	}
	completeInstructions = []string{
		"Session finished.",
		"Use Confirm Complete to archive this workout and remove it from active workouts.",
	}
	restInstructions = []string{
		"Keep moving lightly and breathe slowly.",
		"Reset posture: shoulders down, rib cage stacked, core gently braced.",
		"Get your setup ready before the timer reaches zero.",
	}
)

// Controls reports which commands are currently accepted. True means enabled.
type Controls struct {
	Start          bool
	ResumeFromPlan bool
	Pause          bool
	Resume         bool
	BackToPlan     bool
	Back           bool
	Skip           bool
	Reset          bool
	Confirm        bool
}

// WorkoutItem is one row of the scheduled-workout list.
type WorkoutItem struct {
	Title       string
	Date        string
	Description string
	Selected    bool
}

// PlanExercise is one exercise card of the plan overview.
type PlanExercise struct {
	Name    string
	Metrics string
	Notes   []string
}

// PlanView is the overview of the selected workout.
type PlanView struct {
	Title       string
	Meta        string
	Description string
	Duration    string
	Exercises   []PlanExercise
	// Empty is set instead of Exercises when there is nothing to list.
	Empty string
}

// ViewModel is everything the player displays for one snapshot.
type ViewModel struct {
	Mode session.ViewMode

	Badge          Badge
	Round          string
	Clock          string
	ExerciseName   string
	ExerciseDetail string
	Instructions   []string
	Next           string

	Controls Controls
	Plan     PlanView

	ListSummary string
	ListEmpty   string
	Workouts    []WorkoutItem

	Status      string
	StatusIsErr bool
}

// Render projects s into a ViewModel.
func Render(s session.State) ViewModel {
	vm := ViewModel{
		Mode:        s.ViewMode,
		Controls:    controls(s),
		Plan:        plan(s.Workout),
		Status:      s.Message,
		StatusIsErr: s.MessageIsErr,
	}
	vm.ListSummary, vm.ListEmpty, vm.Workouts = workoutList(s)

	if s.Workout == nil {
		vm.Badge = BadgeReady
		vm.Round = "Round: -"
		vm.Clock = FormatClock(0)
		vm.ExerciseName = "No workouts scheduled"
		vm.ExerciseDetail = "Generate a new week plan and reload."
		vm.Instructions = emptyListInstructions
		vm.Next = "Next: -"
		return vm
	}

	w := *s.Workout
	switch {
	case s.Running && s.Phase == session.PhaseRest:
		vm.Badge = BadgeRest
	case s.Running:
		vm.Badge = BadgeWork
	case s.PendingCompletion:
		vm.Badge = BadgeComplete
	default:
		vm.Badge = BadgeReady
	}
	vm.Round = fmt.Sprintf("Round: %d/%d", s.Round, w.RoundCount())
	vm.Clock = FormatClock(s.Remaining)

	switch {
	case s.PendingCompletion:
		vm.ExerciseName = "Workout complete"
		vm.ExerciseDetail = "Press confirm to move this workout to history."
		vm.Instructions = completeInstructions
		vm.Next = "Next: -"
		return vm
	case s.Running && s.Phase == session.PhaseRest:
		vm.ExerciseName = "Break"
		vm.ExerciseDetail = "Recover, breathe, and set up for the next movement."
		vm.Instructions = restInstructions
		vm.Next = nextText(w, s.ExerciseIndex)
		return vm
	}

	ex := s.CurrentExercise()
	vm.ExerciseName = exerciseName(ex)
	details := []string{
		"Date: " + orDash(w.Date),
		fmt.Sprintf("Work: %d sec", session.WorkSeconds(ex)),
	}
	if ex.Reps != "" {
		details = append(details, "Reps: "+string(ex.Reps))
	}
	if ex.RestSeconds != nil {
		details = append(details, fmt.Sprintf("Rest after: %d sec", *ex.RestSeconds))
	}
	vm.ExerciseDetail = strings.Join(details, " | ")
	vm.Instructions = NormalizeInstructions(ex.Instructions)
	vm.Next = nextText(w, s.ExerciseIndex)
	return vm
}

func controls(s session.State) Controls {
	c := Controls{
		Start:          s.Workout != nil && !s.Running && !s.Paused && !s.PendingCompletion,
		ResumeFromPlan: s.Running && s.Paused,
	}
	switch {
	case s.Running && !s.Paused:
		c.Pause, c.BackToPlan, c.Back, c.Skip, c.Reset = true, true, true, true, true
	case s.Running && s.Paused:
		c.Resume, c.BackToPlan, c.Back, c.Skip, c.Reset = true, true, true, true, true
	default:
		c.Confirm = s.PendingCompletion
	}
	return c
}

func plan(w *models.Workout) PlanView {
	if w == nil {
		return PlanView{
			Title:       "No workouts scheduled",
			Meta:        "Date: - | Rounds: - | Exercises: -",
			Description: "Generate a new weekly plan and reload.",
			Duration:    "--",
			Empty:       "No workout selected.",
		}
	}

	p := PlanView{
		Title:       titleOf(*w),
		Meta:        fmt.Sprintf("Date: %s | Rounds: %d | Exercises: %d", orDash(w.Date), w.RoundCount(), len(w.Exercises)),
		Description: w.Description,
		Duration:    FormatDuration(session.EstimateSeconds(*w)),
	}
	if len(w.Exercises) == 0 {
		p.Empty = "No exercises available in this workout."
		return p
	}
	for i, ex := range w.Exercises {
		metrics := []string{
			fmt.Sprintf("Work %ds", session.WorkSeconds(ex)),
			fmt.Sprintf("Rest %ds", session.RestSeconds(*w, ex)),
		}
		if ex.Reps != "" {
			metrics = append(metrics, "Reps "+string(ex.Reps))
		}
		p.Exercises = append(p.Exercises, PlanExercise{
			Name:    fmt.Sprintf("%d. %s", i+1, exerciseName(ex)),
			Metrics: strings.Join(metrics, " | "),
			Notes:   NormalizeInstructions(ex.Instructions),
		})
	}
	return p
}

func workoutList(s session.State) (summary, empty string, items []WorkoutItem) {
	n := len(s.Workouts)
	if n == 0 {
		return "0 workouts scheduled", "No scheduled workouts. Generate a new week and reload.", nil
	}
	summary = fmt.Sprintf("%d workout%s scheduled", n, plural(n))
	for i, w := range s.Workouts {
		date := w.Date
		if date == "" {
			date = "No date"
		}
		items = append(items, WorkoutItem{
			Title:       titleOf(w),
			Date:        date,
			Description: w.Description,
			Selected:    i == s.SelectedIndex,
		})
	}
	return summary, "", items
}

func nextText(w models.Workout, index int) string {
	next, ok := session.PeekNext(w, index)
	if !ok || next.Name == "" {
		return "Next: -"
	}
	return "Next: " + next.Name
}

// FormatClock renders seconds as MM:SS. Negative input shows 00:00.
func FormatClock(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// FormatDuration renders seconds as "1h 2m 3s", omitting zero units. Zero
// renders as "0s".
func FormatDuration(seconds int) string {
	seconds = max(seconds, 0)
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

var (
	lineBreaks   = regexp.MustCompile(`\n+`)
	bulletPrefix = regexp.MustCompile(`^[-*\s]+`)
)

// NormalizeInstructions turns instructions into display bullets. Lists are
// trimmed; text is split into lines (bullet markers stripped) or, when it is
// a single line, into sentences.
func NormalizeInstructions(in models.Instructions) []string {
	if in.IsList {
		var out []string
		for _, item := range in.Items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return []string{noInstructions}
		}
		return out
	}

	if strings.TrimSpace(in.Text) == "" {
		return []string{noInstructions}
	}

	var lines []string
	for _, line := range lineBreaks.Split(in.Text, -1) {
		if line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, "")); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 1 {
		return lines
	}

	var sentences []string
	for _, part := range strings.Split(in.Text, ".") {
		if part = strings.TrimSpace(part); part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

func exerciseName(ex models.Exercise) string {
	if ex.Name == "" {
		return "Unnamed Exercise"
	}
	return ex.Name
}

func titleOf(w models.Workout) string {
	if w.Title == "" {
		return "Untitled Workout"
	}
	return w.Title
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
