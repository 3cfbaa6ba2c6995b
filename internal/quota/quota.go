// Package quota enforces per-user monthly prediction limits by tier.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageLimits maps subscription tiers to monthly prediction allowances.
// -1 means unlimited.
var UsageLimits = map[string]int{
	"free":      50,
	"pro":       500,
	"unlimited": -1,
}

// UsageDB defines the database operations needed by Checker.
type UsageDB interface {
	CountUserPredictionsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// Checker provides methods to check and enforce usage limits.
type Checker struct {
	db UsageDB
}

// NewChecker creates a new usage checker.
func NewChecker(db UsageDB) *Checker {
	return &Checker{db: db}
}

// Stats contains current usage information for a user.
type Stats struct {
	UserID        uuid.UUID `json:"userId"`
	Tier          string    `json:"tier"`
	UsedThisMonth int       `json:"usedThisMonth"`
	Limit         int       `json:"limit"`
	Remaining     int       `json:"remaining"`
	ResetDate     time.Time `json:"resetDate"`
}

// GetStats returns current usage statistics for a user.
func (c *Checker) GetStats(ctx context.Context, userID uuid.UUID, tier string) (*Stats, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	count, err := c.db.CountUserPredictionsSince(ctx, userID, monthStart)
	if err != nil {
		return nil, err
	}

	limit, ok := UsageLimits[tier]
	if !ok {
		limit = UsageLimits["free"]
	}
	remaining := limit - count
	if limit == -1 {
		remaining = -1 // Unlimited
	} else if remaining < 0 {
		remaining = 0
	}

	return &Stats{
		UserID:        userID,
		Tier:          tier,
		UsedThisMonth: count,
		Limit:         limit,
		Remaining:     remaining,
		ResetDate:     nextMonth,
	}, nil
}

// Check verifies the user is within their monthly limit and returns a
// LimitExceededError if not. This should be called before running a
// prediction.
func (c *Checker) Check(ctx context.Context, userID uuid.UUID, tier string) error {
	stats, err := c.GetStats(ctx, userID, tier)
	if err != nil {
		return err
	}

	if stats.Limit == -1 {
		return nil
	}
	if stats.Remaining > 0 {
		return nil
	}

	return &LimitExceededError{
		UserID:    userID,
		Tier:      stats.Tier,
		Limit:     stats.Limit,
		Used:      stats.UsedThisMonth,
		ResetDate: stats.ResetDate,
	}
}

// LimitExceededError is returned when a user exceeds their monthly limit.
type LimitExceededError struct {
	UserID    uuid.UUID
	Tier      string
	Limit     int
	Used      int
	ResetDate time.Time
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf(
		"usage limit exceeded: %d/%d predictions used this month (tier: %s, resets: %s)",
		e.Used, e.Limit, e.Tier, e.ResetDate.Format("2006-01-02"),
	)
}

// IsLimitExceeded checks if an error is a LimitExceededError.
func IsLimitExceeded(err error) bool {
	_, ok := err.(*LimitExceededError)
	return ok
}
