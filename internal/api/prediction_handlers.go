package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/medscan/medscan/internal/database"
)

// handleListPredictions returns the caller's prediction history, newest
// first, optionally filtered by external patient ID.
func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	predictions, err := s.db.ListPredictions(r.Context(), database.ListPredictionsParams{
		UserID:    user.ID,
		PatientID: r.URL.Query().Get("patientId"),
		Limit:     parseLimit(r),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}

	items := make([]map[string]any, 0, len(predictions))
	for _, p := range predictions {
		items = append(items, predictionJSON(p))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"predictions": items})
}

// handleGetPrediction returns a single prediction scoped to its owner.
func (s *Server) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("predictionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prediction ID")
		return
	}

	p, err := s.db.GetPredictionByID(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "prediction not found")
		return
	}

	writeSuccess(w, http.StatusOK, predictionJSON(p))
}

// handleListPatients returns the caller's patient summaries.
func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	patients, err := s.db.ListPatients(r.Context(), user.ID, parseLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list patients")
		return
	}

	items := make([]map[string]any, 0, len(patients))
	for _, p := range patients {
		items = append(items, patientJSON(p))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"patients": items})
}

// handleGetPatient returns one patient summary with their prediction
// history.
func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	patientID := r.PathValue("patientID")
	patient, err := s.db.GetPatient(r.Context(), user.ID, patientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if patient == nil {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}

	predictions, err := s.db.ListPredictions(r.Context(), database.ListPredictionsParams{
		UserID:    user.ID,
		PatientID: patientID,
		Limit:     parseLimit(r),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}

	items := make([]map[string]any, 0, len(predictions))
	for _, p := range predictions {
		items = append(items, predictionJSON(p))
	}

	resp := patientJSON(patient)
	resp["predictions"] = items
	writeSuccess(w, http.StatusOK, resp)
}

// handleGetUsage returns the caller's quota usage for the current month.
func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	stats, err := s.usageChecker.GetStats(r.Context(), user.ID, user.Tier)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute usage")
		return
	}

	writeSuccess(w, http.StatusOK, stats)
}
