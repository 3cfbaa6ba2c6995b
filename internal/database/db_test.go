package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medscan/medscan/internal/classify"
)

// testDB returns a migrated DB. It prefers DATABASE_URL; otherwise it
// starts a throwaway postgres container (skipped with -short or when
// Docker is unavailable).
func testDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		if testing.Short() {
			t.Skip("DATABASE_URL not set and -short given")
		}

		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("medscan_test"),
			tcpostgres.WithUsername("medscan"),
			tcpostgres.WithPassword("medscan"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			t.Skipf("could not start postgres container: %v", err)
		}
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

		dbURL, err = ctr.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	require.NoError(t, Migrate(dbURL))

	db, err := New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func testUser(t *testing.T, db *DB) *User {
	t.Helper()
	subject := "sub_" + uuid.New().String()[:8]
	user, err := db.CreateUser(context.Background(), subject, subject+"@example.com")
	require.NoError(t, err)
	return user
}

func TestUserRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	subject := "sub_" + uuid.New().String()[:8]
	user, err := db.CreateUser(ctx, subject, "doc@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "free", user.Tier)

	found, err := db.GetUserBySubject(ctx, subject)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := db.GetUserBySubject(ctx, "sub_nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// EnsureUser is idempotent.
	again, err := db.EnsureUser(ctx, subject, "doc@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestPredictionLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	user := testUser(t, db)

	age := 61
	created, err := db.CreatePrediction(ctx, CreatePredictionParams{
		UserID: user.ID,
		Patient: &classify.PatientInfo{
			PatientID: "P-100",
			Age:       &age,
			Symptoms:  "persistent cough",
		},
		ImageFilename: "chest_xray.png",
		ModelType:     classify.ModelPneumonia,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, created.Status)
	require.NotNil(t, created.PatientID)
	assert.Equal(t, "P-100", *created.PatientID)
	assert.Nil(t, created.CompletedAt)

	cfg := classify.ModelConfig{Classes: []string{"Normal", "Pneumonia"}, Threshold: 0.5}
	result, err := classify.Normalize([]float32{0.2, 0.8}, cfg, classify.ModelPneumonia)
	require.NoError(t, err)

	require.NoError(t, db.MarkPredictionCompleted(ctx, created.ID, result))

	got, err := db.GetPredictionByID(ctx, user.ID, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Pneumonia", got.Result.Prediction)
	assert.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Patient)
	assert.Equal(t, "persistent cough", got.Patient.Symptoms)
}

func TestSetPredictionImageURL(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	user := testUser(t, db)

	created, err := db.CreatePrediction(ctx, CreatePredictionParams{
		UserID:        user.ID,
		ImageFilename: "scan.png",
		ModelType:     classify.ModelPneumonia,
	})
	require.NoError(t, err)
	assert.Nil(t, created.ImageURL)

	require.NoError(t, db.SetPredictionImageURL(ctx, created.ID, "/uploads/123_abc.png"))

	got, err := db.GetPredictionByID(ctx, user.ID, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "/uploads/123_abc.png", *got.ImageURL)
}

func TestPredictionFailedState(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	user := testUser(t, db)

	created, err := db.CreatePrediction(ctx, CreatePredictionParams{
		UserID:        user.ID,
		ImageFilename: "scan.png",
		ModelType:     classify.ModelBrainTumor,
	})
	require.NoError(t, err)

	require.NoError(t, db.MarkPredictionFailed(ctx, created.ID, "model load failed"))

	got, err := db.GetPredictionByID(ctx, user.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "model load failed", *got.ErrorMessage)
	assert.Nil(t, got.Result)
}

func TestPredictionOwnerScoping(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := testUser(t, db)
	other := testUser(t, db)

	created, err := db.CreatePrediction(ctx, CreatePredictionParams{
		UserID:        owner.ID,
		ImageFilename: "scan.png",
		ModelType:     classify.ModelPneumonia,
	})
	require.NoError(t, err)

	got, err := db.GetPredictionByID(ctx, other.ID, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListPredictionsFiltersAndOrders(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	user := testUser(t, db)

	for _, pid := range []string{"P-1", "P-2", "P-1"} {
		_, err := db.CreatePrediction(ctx, CreatePredictionParams{
			UserID:        user.ID,
			Patient:       &classify.PatientInfo{PatientID: pid},
			ImageFilename: "scan.png",
			ModelType:     classify.ModelPneumonia,
		})
		require.NoError(t, err)
	}

	all, err := db.ListPredictions(ctx, ListPredictionsParams{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].CreatedAt.Before(all[i].CreatedAt))
	}

	filtered, err := db.ListPredictions(ctx, ListPredictionsParams{UserID: user.ID, PatientID: "P-1"})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestCountUserPredictionsSince(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	user := testUser(t, db)

	for range 2 {
		_, err := db.CreatePrediction(ctx, CreatePredictionParams{
			UserID:        user.ID,
			ImageFilename: "scan.png",
			ModelType:     classify.ModelPneumonia,
		})
		require.NoError(t, err)
	}

	count, err := db.CountUserPredictionsSince(ctx, user.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = db.CountUserPredictionsSince(ctx, user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPatientSummaryUpsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	user := testUser(t, db)

	age := 45
	first := time.Now().UTC().Truncate(time.Second)
	p, err := db.UpsertPatientSummary(ctx, user.ID, &classify.PatientInfo{
		PatientID:   "P-9",
		PatientName: "Jan Kowalski",
		Age:         &age,
		Symptoms:    "cough",
	}, first)
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Jan Kowalski", *p.Name)

	// Second upsert with sparse fields keeps the stored name.
	later := first.Add(time.Minute)
	p, err = db.UpsertPatientSummary(ctx, user.ID, &classify.PatientInfo{
		PatientID: "P-9",
		Symptoms:  "cough and fever",
	}, later)
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Jan Kowalski", *p.Name)
	require.NotNil(t, p.Symptoms)
	assert.Equal(t, "cough and fever", *p.Symptoms)
	require.NotNil(t, p.LastPredictionAt)
	assert.WithinDuration(t, later, *p.LastPredictionAt, time.Second)

	list, err := db.ListPatients(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P-9", list[0].PatientID)
}
