// Package prediction orchestrates the full pipeline for one uploaded image:
// model selection, classification, LLM enrichment, and persistence. Only
// classification failures are fatal; storage and database writes are
// best-effort and degrade to a response without an id or image URL.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medscan/medscan/internal/classify"
	"github.com/medscan/medscan/internal/database"
	"github.com/medscan/medscan/internal/interpret"
)

const defaultClassifyTimeout = 60 * time.Second

// ErrMissingImage means the request carried no image bytes. Rejected before
// any side effects so no record or blob is created for an empty upload.
var ErrMissingImage = errors.New("image file is required")

// RecordStore is the slice of the database layer the orchestrator needs.
type RecordStore interface {
	CreatePrediction(ctx context.Context, params database.CreatePredictionParams) (*database.Prediction, error)
	MarkPredictionCompleted(ctx context.Context, id uuid.UUID, result *classify.PredictionResult) error
	SetPredictionImageURL(ctx context.Context, id uuid.UUID, url string) error
	MarkPredictionFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	UpsertPatientSummary(ctx context.Context, userID uuid.UUID, info *classify.PatientInfo, at time.Time) (*database.Patient, error)
}

// BlobStore uploads the original image for later review.
type BlobStore interface {
	Upload(data []byte, filename, contentType string) (string, error)
}

// EnrichmentProvider produces the language interpretation for a result.
type EnrichmentProvider interface {
	Enrich(ctx context.Context, result *classify.PredictionResult, patient *classify.PatientInfo) *interpret.Enrichment
}

// Orchestrator wires the pipeline stages together. Blobs and records are
// optional; a nil RecordStore or BlobStore simply skips that stage.
type Orchestrator struct {
	registry *classify.Registry
	enricher EnrichmentProvider
	records  RecordStore
	blobs    BlobStore

	classifyTimeout time.Duration
}

// New creates an orchestrator. records and blobs may be nil.
func New(registry *classify.Registry, enricher EnrichmentProvider, records RecordStore, blobs BlobStore) *Orchestrator {
	return &Orchestrator{
		registry:        registry,
		enricher:        enricher,
		records:         records,
		blobs:           blobs,
		classifyTimeout: defaultClassifyTimeout,
	}
}

// Request is one prediction job.
type Request struct {
	UserID      uuid.UUID
	Image       []byte
	Filename    string
	ContentType string
	// ModelType is the caller's explicit choice; empty or "auto" delegates
	// to the keyword selector.
	ModelType string
	Patient   *classify.PatientInfo
}

// Response is the pipeline outcome. PredictionID and ImageURL are nil when
// the corresponding best-effort stage failed or was not configured.
type Response struct {
	Result       *classify.PredictionResult `json:"prediction"`
	Patient      *classify.PatientInfo      `json:"patientInfo,omitempty"`
	PredictionID *uuid.UUID                 `json:"predictionId"`
	ImageURL     *string                    `json:"imageUrl"`
}

// FailedError is returned when classification itself fails. It wraps the
// backend error so handlers can distinguish invalid input from model
// failures.
type FailedError struct {
	ModelType classify.ModelType
	Err       error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("prediction failed for model %s: %v", e.ModelType, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Run executes the pipeline for one request.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	if len(req.Image) == 0 {
		return nil, ErrMissingImage
	}

	modelType, err := o.resolveModelType(req)
	if err != nil {
		return nil, err
	}

	// Blob upload and record creation run concurrently with each other and
	// are both best-effort.
	var (
		wg       sync.WaitGroup
		imageURL *string
		record   *database.Prediction
	)

	if o.blobs != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := o.blobs.Upload(req.Image, req.Filename, req.ContentType)
			if err != nil {
				log.Printf("Blob upload failed (continuing without image URL): %v", err)
				return
			}
			imageURL = &url
		}()
	}

	if o.records != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := o.records.CreatePrediction(ctx, database.CreatePredictionParams{
				UserID:        req.UserID,
				Patient:       req.Patient,
				ImageFilename: req.Filename,
				ModelType:     modelType,
			})
			if err != nil {
				log.Printf("Failed to create prediction record (continuing without persistence): %v", err)
				return
			}
			record = p
		}()
	}

	wg.Wait()

	result, err := o.classify(ctx, req, modelType)
	if err != nil {
		if record != nil {
			if markErr := o.records.MarkPredictionFailed(ctx, record.ID, err.Error()); markErr != nil {
				log.Printf("Failed to mark prediction %s as failed: %v", record.ID, markErr)
			}
		}
		return nil, &FailedError{ModelType: modelType, Err: err}
	}

	if o.enricher != nil {
		enr := o.enricher.Enrich(ctx, result, req.Patient)
		result.GeminiInterpretation = enr.Interpretation
		result.DiseaseInfo = enr.DiseaseInfo
	}

	o.finalize(ctx, req, record, imageURL, result)

	resp := &Response{Result: result, Patient: req.Patient, ImageURL: imageURL}
	if record != nil {
		id := record.ID
		resp.PredictionID = &id
	}
	return resp, nil
}

func (o *Orchestrator) resolveModelType(req Request) (classify.ModelType, error) {
	if req.ModelType != "" && req.ModelType != "auto" {
		mt, ok := classify.ParseModelType(req.ModelType)
		if !ok {
			return "", fmt.Errorf("%w: %q", classify.ErrUnknownModelType, req.ModelType)
		}
		return mt, nil
	}
	return classify.SelectModel(req.Filename, req.Patient), nil
}

func (o *Orchestrator) classify(ctx context.Context, req Request, mt classify.ModelType) (*classify.PredictionResult, error) {
	classifyCtx, cancel := context.WithTimeout(ctx, o.classifyTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.registry.Predict(classifyCtx, classify.Input{
		Bytes:    req.Image,
		Filename: req.Filename,
		Hints:    patientHints(req.Patient),
	}, mt)
	if err != nil {
		return nil, err
	}
	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	return result, nil
}

// finalize persists the terminal state and patient summary. Both writes are
// best-effort and run concurrently.
func (o *Orchestrator) finalize(ctx context.Context, req Request, record *database.Prediction, imageURL *string, result *classify.PredictionResult) {
	var wg sync.WaitGroup

	if record != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if imageURL != nil {
				if err := o.records.SetPredictionImageURL(ctx, record.ID, *imageURL); err != nil {
					log.Printf("Failed to set image URL on prediction %s: %v", record.ID, err)
				}
			}
			if err := o.records.MarkPredictionCompleted(ctx, record.ID, result); err != nil {
				log.Printf("Failed to mark prediction %s completed: %v", record.ID, err)
			}
		}()
	}

	if o.records != nil && req.Patient != nil && req.Patient.PatientID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.records.UpsertPatientSummary(ctx, req.UserID, req.Patient, time.Now().UTC()); err != nil {
				log.Printf("Failed to upsert patient summary for %s: %v", req.Patient.PatientID, err)
			}
		}()
	}

	wg.Wait()
}

// patientHints flattens the free-text patient fields the demo backend and
// auto-selector use as weak signals.
func patientHints(p *classify.PatientInfo) string {
	if p == nil {
		return ""
	}
	return p.Symptoms + " " + p.MedicalHistory
}

// IsInvalidInput reports whether a pipeline error was caused by bad caller
// input rather than a backend failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrMissingImage) ||
		errors.Is(err, classify.ErrInvalidImage) ||
		errors.Is(err, classify.ErrImageTooLarge) ||
		errors.Is(err, classify.ErrUnknownModelType)
}
