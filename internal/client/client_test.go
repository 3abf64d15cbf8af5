package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/schedule"
	"github.com/claude/circuit/internal/session"
)

var _ session.Persistence = (*HTTPClient)(nil)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestLoadState verifies the state payload is decoded, including optional
// exercise fields.
func TestLoadState(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/state": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s", r.Method)
			}
			w.Write([]byte(`{"meta":{"name":"Week"},"workouts":[{"id":"w1","date":"2026-03-02","title":"A","rounds":2,
				"exercises":[{"name":"Plank","duration_seconds":30,"reps":12,"instructions":["Brace"]}]}],"completed_workouts":[]}`))
		},
	})

	state, err := NewHTTPClient(ts.URL+"/", "").LoadState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Workouts) != 1 || state.Workouts[0].Rounds != 2 {
		t.Fatalf("workouts = %+v", state.Workouts)
	}
	ex := state.Workouts[0].Exercises[0]
	if ex.Reps != "12" || !ex.Instructions.IsList || ex.DurationSeconds == nil {
		t.Errorf("exercise = %+v", ex)
	}
}

// TestCompleteWorkoutSendsBody verifies the completion request shape.
func TestCompleteWorkoutSendsBody(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/complete": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q", ct)
			}
			var req models.CompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if req.ID != "w1" || req.Date != "2026-03-02" {
				t.Errorf("request = %+v", req)
			}
			writeTestJSON(t, w, http.StatusOK, models.StatePayload{
				Workouts:          []models.Workout{},
				CompletedWorkouts: []models.CompletedEntry{{Title: "A"}},
			})
		},
	})

	state, err := NewHTTPClient(ts.URL, "").CompleteWorkout(context.Background(), "w1", "2026-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.CompletedWorkouts) != 1 {
		t.Errorf("completed = %+v", state.CompletedWorkouts)
	}
}

// TestRequestErrorCarriesServerMessage verifies non-2xx responses surface
// the {"error": ...} text and status.
func TestRequestErrorCarriesServerMessage(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/complete": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusNotFound, map[string]string{"error": "Workout not found"})
		},
		"/api/state": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down\n"))
		},
	})
	c := NewHTTPClient(ts.URL, "")

	_, err := c.CompleteWorkout(context.Background(), "x", "")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusNotFound || reqErr.Message != "Workout not found" {
		t.Errorf("error = %+v", reqErr)
	}

	_, err = c.LoadState(context.Background())
	if !errors.As(err, &reqErr) || reqErr.Message != "upstream down" {
		t.Errorf("err = %v", err)
	}
}

// TestTransportError verifies connection failures are wrapped.
func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewHTTPClient(url, "").LoadState(context.Background())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Err == nil || reqErr.Op != "load state" {
		t.Errorf("err = %v", err)
	}
}

// TestReplacePlanSendsAPIKey verifies the key and source reach the protected route.
func TestReplacePlanSendsAPIKey(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/plan": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "secret" {
				t.Errorf("X-API-Key = %q", got)
			}
			if got := r.URL.Query().Get("source"); got != "upload" {
				t.Errorf("source = %q", got)
			}
			var doc models.PlanDocument
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				t.Fatal(err)
			}
			writeTestJSON(t, w, http.StatusOK, schedule.ImportResult{Received: len(doc.Workouts), Accepted: len(doc.Workouts)})
		},
	})

	doc := models.PlanDocument{Workouts: []json.RawMessage{json.RawMessage(`{"id":"a"}`)}}
	res, err := NewHTTPClient(ts.URL, "secret").ReplacePlan(context.Background(), "upload", doc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Received != 1 || res.Accepted != 1 {
		t.Errorf("result = %+v", res)
	}
}

// TestCompletedAndImports verifies the read-only history routes.
func TestCompletedAndImports(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/completed": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, []models.CompletedEntry{{ID: "b"}, {ID: "a"}})
		},
		"/api/v1/completed/abc": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, models.CompletedEntry{ID: "abc", Title: "T"})
		},
		"/api/v1/imports": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit = %q", got)
			}
			w.Write([]byte(`[{"id":1,"source":"file","status":"success"}]`))
		},
	})
	c := NewHTTPClient(ts.URL, "")

	entries, err := c.Completed(context.Background())
	if err != nil || len(entries) != 2 || entries[0].ID != "b" {
		t.Errorf("Completed = %+v, %v", entries, err)
	}
	e, err := c.CompletedEntry(context.Background(), "abc")
	if err != nil || e.Title != "T" {
		t.Errorf("CompletedEntry = %+v, %v", e, err)
	}
	logs, err := c.ImportLogs(context.Background(), 5)
	if err != nil || len(logs) != 1 || logs[0].Source != "file" {
		t.Errorf("ImportLogs = %+v, %v", logs, err)
	}
}
