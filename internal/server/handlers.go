package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/schedule"
)

// maxPlanBytes bounds a plan upload.
const maxPlanBytes = 8 << 20

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.schedule.LoadState(r.Context())
	if err != nil {
		s.log.Error("load state error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	// A missing or malformed body is treated as empty and reported as a
	// missing id.
	var req models.CompletionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	state, err := s.schedule.CompleteWorkout(r.Context(), req.ID, req.Date)
	switch {
	case errors.Is(err, schedule.ErrMissingID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing workout id"})
		return
	case errors.Is(err, schedule.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Workout not found"})
		return
	case err != nil:
		s.log.Error("complete workout error", "id", req.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.log.Info("workout confirmed", "id", req.ID, "by", userInfoFromContext(r).Login)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	entries, err := s.schedule.Completed(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCompletedEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.schedule.CompletedEntry(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, schedule.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Completed workout not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.schedule.ImportLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var doc models.PlanDocument
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlanBytes)).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}

	result, err := s.schedule.ReplacePlan(r.Context(), source, doc)
	if errors.Is(err, schedule.ErrNoValidWorkouts) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "result": result})
		return
	}
	if err != nil {
		s.log.Error("plan import error", "source", source, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
