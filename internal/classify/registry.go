package classify

import (
	"context"
	"fmt"
)

// MaxImageBytes is the largest accepted upload.
const MaxImageBytes = 10 << 20

// Registry owns the per-model configuration and dispatches classification
// requests to a backend. Inject one registry per process; it is safe for
// concurrent use as long as the backend is.
type Registry struct {
	configs map[ModelType]ModelConfig
	backend Backend
}

// NewRegistry creates a registry over the given configs and backend.
func NewRegistry(configs map[ModelType]ModelConfig, backend Backend) *Registry {
	return &Registry{configs: configs, backend: backend}
}

// Config returns the configuration for a model type.
func (r *Registry) Config(mt ModelType) (ModelConfig, error) {
	cfg, ok := r.configs[mt]
	if !ok {
		return ModelConfig{}, fmt.Errorf("%w: %q", ErrUnknownModelType, mt)
	}
	return cfg, nil
}

// Classify validates the input and delegates to the backend, returning the
// raw probability vector along with its source.
func (r *Registry) Classify(ctx context.Context, in Input, mt ModelType) (*Output, error) {
	if _, err := r.Config(mt); err != nil {
		return nil, err
	}
	if len(in.Bytes) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if len(in.Bytes) > MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrImageTooLarge, len(in.Bytes), MaxImageBytes)
	}
	return r.backend.Classify(ctx, in, mt)
}

// Predict runs the full classify-then-normalize path and returns the
// canonical result.
func (r *Registry) Predict(ctx context.Context, in Input, mt ModelType) (*PredictionResult, error) {
	out, err := r.Classify(ctx, in, mt)
	if err != nil {
		return nil, err
	}
	cfg := r.configs[mt]
	result, err := Normalize(out.Probs, cfg, mt)
	if err != nil {
		return nil, err
	}
	result.Source = out.Source
	return result, nil
}
