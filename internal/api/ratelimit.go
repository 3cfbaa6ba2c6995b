package api

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	defaultRateLimit = 1.0
	defaultRateBurst = 5
)

// userLimiter throttles the predict endpoint per authenticated subject.
// Limiters are created lazily and kept for the process lifetime; the
// subject cardinality is bounded by the user base.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newUserLimiter(limit float64, burst int) *userLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(limit),
		burst:    burst,
	}
}

// Allow reports whether the subject may proceed right now.
func (ul *userLimiter) Allow(subject string) bool {
	ul.mu.Lock()
	lim, ok := ul.limiters[subject]
	if !ok {
		lim = rate.NewLimiter(ul.limit, ul.burst)
		ul.limiters[subject] = lim
	}
	ul.mu.Unlock()

	return lim.Allow()
}
