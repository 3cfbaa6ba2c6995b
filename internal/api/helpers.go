package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/medscan/medscan/internal/auth"
	"github.com/medscan/medscan/internal/database"
)

// getCurrentUser resolves the authenticated caller to a database user,
// creating the record on first sight.
func (s *Server) getCurrentUser(r *http.Request) (*database.User, error) {
	claims := auth.Claims(r.Context())
	if claims == nil {
		return nil, fmt.Errorf("not authenticated")
	}
	return s.db.EnsureUser(r.Context(), claims.Subject, claims.Email)
}

// requireUser writes the error response itself when resolution fails.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*database.User, bool) {
	if !auth.IsAuthenticated(r.Context()) {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return nil, false
	}

	user, err := s.getCurrentUser(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	return user, true
}

// parseLimit extracts a bounded limit query parameter with a default.
func parseLimit(r *http.Request) int {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// predictionJSON shapes a stored prediction for API responses.
func predictionJSON(p *database.Prediction) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"patientId":     p.PatientID,
		"patient":       p.Patient,
		"imageFilename": p.ImageFilename,
		"imageUrl":      p.ImageURL,
		"modelType":     p.ModelType,
		"status":        p.Status,
		"result":        p.Result,
		"errorMessage":  p.ErrorMessage,
		"createdAt":     p.CreatedAt,
		"completedAt":   p.CompletedAt,
	}
}

// patientJSON shapes a stored patient summary for API responses.
func patientJSON(p *database.Patient) map[string]any {
	return map[string]any{
		"patientId":        p.PatientID,
		"patientName":      p.Name,
		"age":              p.Age,
		"weight":           p.Weight,
		"gender":           p.Gender,
		"symptoms":         p.Symptoms,
		"medicalHistory":   p.MedicalHistory,
		"lastPredictionAt": p.LastPredictionAt,
		"createdAt":        p.CreatedAt,
	}
}
