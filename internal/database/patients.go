package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medscan/medscan/internal/classify"
)

// Patient is a per-user patient summary, keyed by the caller-supplied
// external patient ID. It tracks the last known metadata and the time of
// the most recent prediction.
type Patient struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	PatientID        string
	Name             *string
	Age              *int
	Weight           *float64
	Gender           *string
	Symptoms         *string
	MedicalHistory   *string
	LastPredictionAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const patientColumns = `id, user_id, patient_id, name, age, weight, gender, symptoms, medical_history, last_prediction_at, created_at, updated_at`

// UpsertPatientSummary records a prediction against a patient, creating the
// summary row on first sight. COALESCE keeps previously stored fields when
// the new request omits them.
func (db *DB) UpsertPatientSummary(ctx context.Context, userID uuid.UUID, info *classify.PatientInfo, at time.Time) (*Patient, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO patients (user_id, patient_id, name, age, weight, gender, symptoms, medical_history, last_prediction_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
		 ON CONFLICT (user_id, patient_id) DO UPDATE SET
		   name = COALESCE(NULLIF(EXCLUDED.name, ''), patients.name),
		   age = COALESCE(EXCLUDED.age, patients.age),
		   weight = COALESCE(EXCLUDED.weight, patients.weight),
		   gender = COALESCE(NULLIF(EXCLUDED.gender, ''), patients.gender),
		   symptoms = COALESCE(NULLIF(EXCLUDED.symptoms, ''), patients.symptoms),
		   medical_history = COALESCE(NULLIF(EXCLUDED.medical_history, ''), patients.medical_history),
		   last_prediction_at = EXCLUDED.last_prediction_at,
		   updated_at = now()
		 RETURNING `+patientColumns,
		userID, info.PatientID, info.PatientName, info.Age, info.Weight,
		info.Gender, info.Symptoms, info.MedicalHistory, at,
	)
	return scanPatient(row)
}

// GetPatient retrieves a patient summary by external patient ID.
func (db *DB) GetPatient(ctx context.Context, userID uuid.UUID, patientID string) (*Patient, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE user_id = $1 AND patient_id = $2`,
		userID, patientID,
	)
	return scanPatient(row)
}

// ListPatients returns a user's patient summaries, most recently updated
// first.
func (db *DB) ListPatients(ctx context.Context, userID uuid.UUID, limit int) ([]*Patient, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients
		 WHERE user_id = $1
		 ORDER BY updated_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.UserID, &p.PatientID, &p.Name, &p.Age, &p.Weight, &p.Gender,
		&p.Symptoms, &p.MedicalHistory, &p.LastPredictionAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
