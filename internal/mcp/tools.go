package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/schedule"
	"github.com/claude/circuit/internal/session"
)

// WorkoutSummary is the list_workouts row.
type WorkoutSummary struct {
	ID               string `json:"id"`
	Date             string `json:"date"`
	Title            string `json:"title"`
	Rounds           int    `json:"rounds"`
	Exercises        int    `json:"exercises"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

func summarize(w models.Workout) WorkoutSummary {
	return WorkoutSummary{
		ID:               w.ID,
		Date:             w.Date,
		Title:            w.Title,
		Rounds:           w.RoundCount(),
		Exercises:        len(w.Exercises),
		EstimatedSeconds: session.EstimateSeconds(w),
	}
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List the scheduled workouts in schedule order (today, then upcoming, then older). Returns id, date, title, round and exercise counts and the estimated duration in seconds."),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one scheduled workout with all exercises, timings and instructions."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
	mcp.WithString("date", mcp.Description("Scheduled date (YYYY-MM-DD) when the id is reused across days")),
)

var toolGetCompletedHistory = mcp.NewTool("get_completed_history",
	mcp.WithDescription("Completed workouts, newest first, with completion day, date and time and the scheduled date. Use this to plan progression."),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return. Defaults to 20.")),
)

var toolReplacePlan = mcp.NewTool("replace_plan",
	mcp.WithDescription("Replace the scheduled plan. Invalid workouts are dropped and reported; a plan where every workout is invalid is refused and the current schedule kept."),
	mcp.WithObject("plan", mcp.Required(), mcp.Description(`Plan document: {"meta": {...}, "workouts": [{"id", "date", "title", "description", "rounds", "default_rest_seconds", "exercises": [{"name", "work_seconds", "rest_seconds", "reps", "instructions"}]}]}`)),
)

var toolListImports = mcp.NewTool("list_imports",
	mcp.WithDescription("Recent plan imports with source, status and accepted workout counts, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return. Defaults to 10.")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := h.ds.LoadState(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := make([]WorkoutSummary, 0, len(state.Workouts))
	for _, w := range state.Workouts {
		out = append(out, summarize(w))
	}
	return jsonResult(out)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	date := req.GetString("date", "")

	state, err := h.ds.LoadState(ctx)
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	for _, w := range state.Workouts {
		if w.ID == id && (date == "" || w.Date == date) {
			return jsonResult(w)
		}
	}
	return mcp.NewToolResultError("workout not found: " + id), nil
}

func (h *handlers) getCompletedHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	entries, err := h.ds.Completed(ctx)
	if err != nil {
		h.log.Error("mcp get_completed_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	// the archived document is large and available via the resource
	for i := range entries {
		entries[i].Workout = nil
	}
	return jsonResult(entries)
}

func (h *handlers) replacePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["plan"]
	if !ok {
		return mcp.NewToolResultError("plan parameter is required"), nil
	}
	doc, err := decodePlan(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid plan: " + err.Error()), nil
	}

	res, err := h.ds.ReplacePlan(ctx, "mcp", doc)
	if errors.Is(err, schedule.ErrNoValidWorkouts) {
		msg := err.Error()
		if res != nil {
			for _, r := range res.Rejected {
				msg += "\n- " + r.Reason
			}
		}
		return mcp.NewToolResultError(msg), nil
	}
	if err != nil {
		h.log.Error("mcp replace_plan", "error", err)
		return mcp.NewToolResultError("replace failed: " + err.Error()), nil
	}
	return jsonResult(res)
}

func (h *handlers) listImports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := h.ds.ImportLogs(ctx, req.GetInt("limit", 10))
	if err != nil {
		h.log.Error("mcp list_imports", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(logs)
}

// decodePlan turns the tool's object argument into a PlanDocument. Clients
// that send the plan as a JSON string are accepted too.
func decodePlan(raw any) (models.PlanDocument, error) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return models.PlanDocument{}, err
		}
		data = b
	}

	var doc models.PlanDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.PlanDocument{}, err
	}
	if doc.Workouts == nil {
		return models.PlanDocument{}, errors.New(`missing "workouts" array`)
	}
	return doc, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
