package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/medscan/medscan/internal/auth"
	"github.com/medscan/medscan/internal/classify"
	"github.com/medscan/medscan/internal/prediction"
	"github.com/medscan/medscan/internal/quota"
)

// maxUploadBytes bounds the whole multipart body, leaving headroom over the
// image size limit for the form fields.
const maxUploadBytes = classify.MaxImageBytes + 1<<20

// handlePredict runs the prediction pipeline on an uploaded image.
// The request is multipart/form-data with an "image" file part plus
// optional modelType and patient fields.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := auth.Claims(ctx)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if !s.limiter.Allow(claims.Subject) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
		return
	}

	// Persistence is best-effort: without a database the prediction still
	// runs, it just is not recorded or quota-checked.
	userID := uuid.Nil
	if s.db != nil {
		user, err := s.getCurrentUser(r)
		if err != nil {
			log.Printf("Failed to resolve user %s (continuing without persistence): %v", claims.Subject, err)
		} else {
			userID = user.ID
			if err := s.usageChecker.Check(ctx, user.ID, user.Tier); err != nil {
				if quota.IsLimitExceeded(err) {
					writeError(w, http.StatusTooManyRequests, err.Error())
					return
				}
				log.Printf("Quota check failed for %s (allowing request): %v", claims.Subject, err)
			}
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	patient, err := parsePatientForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := prediction.Request{
		UserID:      userID,
		Image:       imageBytes,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		ModelType:   r.FormValue("modelType"),
		Patient:     patient,
	}

	resp, err := s.orchestrator.Run(ctx, req)
	if err != nil {
		if prediction.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Prediction failed for %s: %v", claims.Subject, err)
		msg := "prediction failed"
		if s.devMode {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeSuccess(w, http.StatusOK, resp)
}

// parsePatientForm collects and validates the optional patient fields.
// Returns nil when every field is empty so downstream stages can skip
// patient handling; invalid values are rejected, not silently persisted.
func parsePatientForm(r *http.Request) (*classify.PatientInfo, error) {
	info := &classify.PatientInfo{
		PatientID:      r.FormValue("patientId"),
		PatientName:    r.FormValue("patientName"),
		Gender:         r.FormValue("gender"),
		Symptoms:       r.FormValue("symptoms"),
		MedicalHistory: r.FormValue("medicalHistory"),
	}

	switch info.Gender {
	case "", "male", "female", "other":
	default:
		return nil, errors.New("gender must be one of male, female, other")
	}
	if v := r.FormValue("age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil || age < 0 {
			return nil, errors.New("age must be a non-negative integer")
		}
		info.Age = &age
	}
	if v := r.FormValue("weight"); v != "" {
		weight, err := strconv.ParseFloat(v, 64)
		if err != nil || weight <= 0 {
			return nil, errors.New("weight must be a positive number")
		}
		info.Weight = &weight
	}

	if *info == (classify.PatientInfo{}) {
		return nil, nil
	}
	return info, nil
}
