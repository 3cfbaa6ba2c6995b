package classify

import (
	"context"
	"fmt"
	"strings"
)

// DemoBackend produces plausible probability vectors from filename and hint
// keywords without any real model. It exists for demo deployments and local
// development where inference is unavailable by configuration; it is never
// used as a fallback from a failed real backend.
type DemoBackend struct {
	configs map[ModelType]ModelConfig
}

// NewDemoBackend creates the simulation adapter.
func NewDemoBackend(configs map[ModelType]ModelConfig) *DemoBackend {
	return &DemoBackend{configs: configs}
}

// positiveSignals marks which keywords push the vector toward the abnormal
// class for each model type.
var positiveSignals = map[ModelType][]string{
	ModelPneumonia:    {"pneumonia", "infiltrate", "opacity", "cough", "fever"},
	ModelBrainTumor:   {"tumor", "glioma", "meningioma", "pituitary", "mass", "seizure", "headache"},
	ModelTuberculosis: {"tb", "tuberculosis", "cavity", "night sweat", "hemoptysis"},
}

// Classify derives a deterministic vector: keyword hits raise the abnormal
// class probability, otherwise the vector leans toward the first (normal)
// class.
func (b *DemoBackend) Classify(ctx context.Context, in Input, mt ModelType) (*Output, error) {
	cfg, ok := b.configs[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, mt)
	}
	if len(in.Bytes) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	text := strings.ToLower(in.Filename + " " + in.Hints)
	hits := 0
	for _, k := range positiveSignals[mt] {
		if strings.Contains(text, k) {
			hits++
		}
	}

	n := len(cfg.Classes)
	probs := make([]float32, n)
	if n == 1 {
		probs[0] = 1
		return &Output{Probs: probs, Source: SourceDemo}, nil
	}
	if hits == 0 {
		// Lean normal: bulk on the first class.
		probs[0] = 0.85
		for i := 1; i < n; i++ {
			probs[i] = 0.15 / float32(n-1)
		}
		return &Output{Probs: probs, Source: SourceDemo}, nil
	}

	// Keyword hits push the abnormal class up, capped below certainty.
	positive := 0.70 + 0.05*float32(hits)
	if positive > 0.95 {
		positive = 0.95
	}
	idx := abnormalIndex(mt, cfg.Classes)
	probs[idx] = positive
	rest := (1 - positive) / float32(n-1)
	for i := 0; i < n; i++ {
		if i != idx {
			probs[i] = rest
		}
	}
	return &Output{Probs: probs, Source: SourceDemo}, nil
}

// abnormalIndex picks the class a positive signal should boost: the first
// class that is not a "Normal"/"No Tumor" label, falling back to the last.
func abnormalIndex(mt ModelType, classes []string) int {
	for i, c := range classes {
		lc := strings.ToLower(c)
		if lc != "normal" && lc != "no tumor" && lc != "notumor" {
			return i
		}
	}
	return len(classes) - 1
}
