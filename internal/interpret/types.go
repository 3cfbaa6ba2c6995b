// Package interpret enriches classification results with natural-language
// interpretations from external language-generation providers, with bounded
// retry and a deterministic template fallback.
package interpret

import (
	"context"
	"errors"
	"fmt"
)

// Message is one turn of a completion conversation.
type Message struct {
	Role    string
	Content string
}

// Response is a provider's completion.
type Response struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client is a language-generation provider.
type Client interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
	Provider() string
	Model() string
}

// APIError is a non-200 provider response. The enricher uses the status code
// to separate transient conditions from permanent ones.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}

// ErrEmptyResponse means the provider answered 200 with no usable text.
// Treated as transient.
var ErrEmptyResponse = errors.New("empty response from provider")
