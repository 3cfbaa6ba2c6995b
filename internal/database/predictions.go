package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medscan/medscan/internal/classify"
)

// Prediction statuses. A record is created in StatusProcessing before
// classification begins and moves to exactly one terminal state.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Prediction is a stored prediction record.
type Prediction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PatientID     *string
	Patient       *classify.PatientInfo
	ImageFilename string
	ImageURL      *string
	ModelType     classify.ModelType
	Status        string
	Result        *classify.PredictionResult
	ErrorMessage  *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// CreatePredictionParams contains parameters for creating a prediction
// record in the processing state.
type CreatePredictionParams struct {
	UserID        uuid.UUID
	Patient       *classify.PatientInfo
	ImageFilename string
	ImageURL      *string
	ModelType     classify.ModelType
}

const predictionColumns = `id, user_id, patient_id, patient, image_filename, image_url, model_type, status, result, error_message, created_at, completed_at`

// CreatePrediction stores a new record in the processing state.
func (db *DB) CreatePrediction(ctx context.Context, params CreatePredictionParams) (*Prediction, error) {
	var patientJSON []byte
	var patientID *string
	if params.Patient != nil {
		var err error
		patientJSON, err = json.Marshal(params.Patient)
		if err != nil {
			return nil, err
		}
		if params.Patient.PatientID != "" {
			patientID = &params.Patient.PatientID
		}
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO predictions (user_id, patient_id, patient, image_filename, image_url, model_type, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+predictionColumns,
		params.UserID, patientID, patientJSON, params.ImageFilename, params.ImageURL,
		params.ModelType, StatusProcessing,
	)
	return scanPrediction(row)
}

// MarkPredictionCompleted transitions a record to completed with its result.
func (db *DB) MarkPredictionCompleted(ctx context.Context, id uuid.UUID, result *classify.PredictionResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE predictions
		 SET status = $2, result = $3, completed_at = now()
		 WHERE id = $1`,
		id, StatusCompleted, resultJSON,
	)
	return err
}

// SetPredictionImageURL attaches the uploaded image URL to a record. The
// upload runs concurrently with record creation, so the URL lands here.
func (db *DB) SetPredictionImageURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE predictions SET image_url = $2 WHERE id = $1`,
		id, url,
	)
	return err
}

// MarkPredictionFailed transitions a record to failed with an error message.
func (db *DB) MarkPredictionFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE predictions
		 SET status = $2, error_message = $3, completed_at = now()
		 WHERE id = $1`,
		id, StatusFailed, errMsg,
	)
	return err
}

// GetPredictionByID retrieves a prediction scoped to its owner.
func (db *DB) GetPredictionByID(ctx context.Context, userID, id uuid.UUID) (*Prediction, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanPrediction(row)
}

// ListPredictionsParams contains filters for listing predictions.
type ListPredictionsParams struct {
	UserID    uuid.UUID
	PatientID string
	Limit     int
}

// ListPredictions returns a user's predictions, newest first, optionally
// filtered by external patient ID.
func (db *DB) ListPredictions(ctx context.Context, params ListPredictionsParams) ([]*Prediction, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if params.PatientID != "" {
		rows, err = db.pool.Query(ctx,
			`SELECT `+predictionColumns+` FROM predictions
			 WHERE user_id = $1 AND patient_id = $2
			 ORDER BY created_at DESC LIMIT $3`,
			params.UserID, params.PatientID, limit,
		)
	} else {
		rows, err = db.pool.Query(ctx,
			`SELECT `+predictionColumns+` FROM predictions
			 WHERE user_id = $1
			 ORDER BY created_at DESC LIMIT $2`,
			params.UserID, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountUserPredictionsSince counts a user's predictions created at or after
// the given time. Used for quota enforcement.
func (db *DB) CountUserPredictionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM predictions WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&count)
	return count, err
}

func scanPrediction(row pgx.Row) (*Prediction, error) {
	var p Prediction
	var patientJSON, resultJSON []byte
	err := row.Scan(
		&p.ID, &p.UserID, &p.PatientID, &patientJSON, &p.ImageFilename, &p.ImageURL,
		&p.ModelType, &p.Status, &resultJSON, &p.ErrorMessage, &p.CreatedAt, &p.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if patientJSON != nil {
		p.Patient = &classify.PatientInfo{}
		if err := json.Unmarshal(patientJSON, p.Patient); err != nil {
			return nil, err
		}
	}
	if resultJSON != nil {
		p.Result = &classify.PredictionResult{}
		if err := json.Unmarshal(resultJSON, p.Result); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
