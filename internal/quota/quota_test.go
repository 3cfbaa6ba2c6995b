package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsageDB struct {
	count int
	err   error
	since time.Time
}

func (s *stubUsageDB) CountUserPredictionsSince(_ context.Context, _ uuid.UUID, since time.Time) (int, error) {
	s.since = since
	return s.count, s.err
}

func TestChecker_GetStats(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("free tier with usage", func(t *testing.T) {
		db := &stubUsageDB{count: 12}
		stats, err := NewChecker(db).GetStats(ctx, userID, "free")
		require.NoError(t, err)
		assert.Equal(t, userID, stats.UserID)
		assert.Equal(t, "free", stats.Tier)
		assert.Equal(t, 12, stats.UsedThisMonth)
		assert.Equal(t, 50, stats.Limit)
		assert.Equal(t, 38, stats.Remaining)
	})

	t.Run("counts from start of current month", func(t *testing.T) {
		db := &stubUsageDB{}
		_, err := NewChecker(db).GetStats(ctx, userID, "free")
		require.NoError(t, err)

		now := time.Now().UTC()
		want := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, want, db.since)
	})

	t.Run("unlimited tier reports -1 remaining", func(t *testing.T) {
		db := &stubUsageDB{count: 9999}
		stats, err := NewChecker(db).GetStats(ctx, userID, "unlimited")
		require.NoError(t, err)
		assert.Equal(t, -1, stats.Limit)
		assert.Equal(t, -1, stats.Remaining)
	})

	t.Run("over limit clamps remaining to zero", func(t *testing.T) {
		db := &stubUsageDB{count: 60}
		stats, err := NewChecker(db).GetStats(ctx, userID, "free")
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Remaining)
	})

	t.Run("unknown tier falls back to free limits", func(t *testing.T) {
		db := &stubUsageDB{count: 0}
		stats, err := NewChecker(db).GetStats(ctx, userID, "legacy")
		require.NoError(t, err)
		assert.Equal(t, 50, stats.Limit)
	})

	t.Run("propagates database errors", func(t *testing.T) {
		db := &stubUsageDB{err: assert.AnError}
		_, err := NewChecker(db).GetStats(ctx, userID, "free")
		assert.Error(t, err)
	})
}

func TestChecker_Check(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("allows under limit", func(t *testing.T) {
		db := &stubUsageDB{count: 49}
		assert.NoError(t, NewChecker(db).Check(ctx, userID, "free"))
	})

	t.Run("allows unlimited tier regardless of count", func(t *testing.T) {
		db := &stubUsageDB{count: 100000}
		assert.NoError(t, NewChecker(db).Check(ctx, userID, "unlimited"))
	})

	t.Run("rejects at limit", func(t *testing.T) {
		db := &stubUsageDB{count: 50}
		err := NewChecker(db).Check(ctx, userID, "free")
		require.Error(t, err)
		assert.True(t, IsLimitExceeded(err))

		limitErr, ok := err.(*LimitExceededError)
		require.True(t, ok)
		assert.Equal(t, userID, limitErr.UserID)
		assert.Equal(t, 50, limitErr.Limit)
		assert.Equal(t, 50, limitErr.Used)
	})

	t.Run("rejects pro tier at its own limit", func(t *testing.T) {
		db := &stubUsageDB{count: 500}
		err := NewChecker(db).Check(ctx, userID, "pro")
		require.Error(t, err)
		assert.True(t, IsLimitExceeded(err))
	})
}

func TestLimitExceededError(t *testing.T) {
	now := time.Now().UTC()
	resetDate := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	err := &LimitExceededError{
		UserID:    uuid.New(),
		Tier:      "free",
		Limit:     50,
		Used:      50,
		ResetDate: resetDate,
	}

	msg := err.Error()
	assert.Contains(t, msg, "usage limit exceeded")
	assert.Contains(t, msg, "50/50")
	assert.Contains(t, msg, "free")
}

func TestIsLimitExceeded(t *testing.T) {
	t.Run("returns true for LimitExceededError", func(t *testing.T) {
		assert.True(t, IsLimitExceeded(&LimitExceededError{}))
	})

	t.Run("returns false for other errors", func(t *testing.T) {
		assert.False(t, IsLimitExceeded(assert.AnError))
	})

	t.Run("returns false for nil", func(t *testing.T) {
		assert.False(t, IsLimitExceeded(nil))
	})
}
