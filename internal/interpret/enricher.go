package interpret

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"github.com/medscan/medscan/internal/classify"
)

const (
	defaultAttempts       = 3
	defaultBaseDelay      = 2 * time.Second
	defaultAttemptTimeout = 30 * time.Second
)

// Enrichment is the outcome of an enrichment call. It is always produced;
// enrichment degrades to the template fallback, it never errors out.
type Enrichment struct {
	Interpretation string
	UsedFallback   bool
	Provider       string
	DiseaseInfo    string
}

// Enricher calls language-generation providers with bounded retry. Providers
// are tried in order within each attempt; a provider that fails permanently
// (bad request, auth) is dropped for the rest of the call. Transient
// failures (timeout, rate limit, unavailable, empty response) back off
// 2s/4s/8s between attempts. Exhaustion falls back to the static template.
type Enricher struct {
	providers      []Client
	attempts       int
	baseDelay      time.Duration
	attemptTimeout time.Duration

	// sleep is swapped in tests to observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration)
}

// NewEnricher creates an enricher over the given provider chain. An empty
// chain is valid and always falls back.
func NewEnricher(providers ...Client) *Enricher {
	return &Enricher{
		providers:      providers,
		attempts:       defaultAttempts,
		baseDelay:      defaultBaseDelay,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Enrich produces an interpretation for the result. The returned Enrichment
// is never nil and its Interpretation is never empty.
func (e *Enricher) Enrich(ctx context.Context, result *classify.PredictionResult, patient *classify.PatientInfo) *Enrichment {
	messages := buildMessages(result, patient)
	disabled := make(map[string]bool)

	for attempt := 1; attempt <= e.attempts; attempt++ {
		allPermanent := len(e.providers) == 0
		for _, p := range e.providers {
			if disabled[p.Provider()] {
				continue
			}
			allPermanent = false

			resp, err := e.complete(ctx, p, messages)
			if err == nil {
				return &Enrichment{
					Interpretation: resp.Content,
					Provider:       p.Provider(),
					DiseaseInfo:    diseaseInfo(result.ModelType, result.Prediction),
				}
			}

			if !transient(err) {
				log.Printf("Enrichment provider %s failed permanently: %v", p.Provider(), err)
				disabled[p.Provider()] = true
				continue
			}
			log.Printf("Enrichment provider %s attempt %d/%d: %v", p.Provider(), attempt, e.attempts, err)
		}

		if remaining := e.liveProviders(disabled); remaining == 0 || allPermanent {
			break
		}

		e.sleep(ctx, e.baseDelay<<(attempt-1))
		if ctx.Err() != nil {
			break
		}
	}

	return e.fallback(result)
}

func (e *Enricher) liveProviders(disabled map[string]bool) int {
	n := 0
	for _, p := range e.providers {
		if !disabled[p.Provider()] {
			n++
		}
	}
	return n
}

func (e *Enricher) complete(ctx context.Context, p Client, messages []Message) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()

	resp, err := p.Complete(attemptCtx, messages)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

func (e *Enricher) fallback(result *classify.PredictionResult) *Enrichment {
	return &Enrichment{
		Interpretation: classify.FallbackInterpretation(result.ModelType, result.Prediction, result.Confidence),
		UsedFallback:   true,
		DiseaseInfo:    diseaseInfo(result.ModelType, result.Prediction),
	}
}

// transient reports whether an error is worth retrying: timeouts, rate
// limits, server-side unavailability, empty responses, and transport
// failures. Client-side API errors (bad request, auth) are permanent.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyResponse) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode == 408:
			return true
		case apiErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Unclassified transport errors get the benefit of the doubt.
	return true
}
