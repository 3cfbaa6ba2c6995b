package classify

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// interpretationTemplates holds the static per-model, per-class fallback
// interpretations keyed by exact class string. Used when the language
// collaborator is unavailable and as the base interpretation before
// enrichment. All text is explicitly non-diagnostic.
var interpretationTemplates = map[ModelType]map[string]string{
	ModelPneumonia: {
		"Normal":    "No radiographic signs of pneumonia were detected. This automated screening result is not a diagnosis; correlate with clinical findings.",
		"Pneumonia": "The chest radiograph shows patterns consistent with pneumonia. This is an automated screening result, not a diagnosis; clinical correlation and specialist review are required.",
	},
	ModelBrainTumor: {
		"Glioma":     "The scan shows patterns consistent with a glioma. This automated result requires confirmation by a radiologist; it is not a diagnosis.",
		"Meningioma": "The scan shows patterns consistent with a meningioma. This automated result requires confirmation by a radiologist; it is not a diagnosis.",
		"No Tumor":   "No tumor patterns were detected in the scan. This automated screening result is not a diagnosis; correlate with clinical findings.",
		"Pituitary":  "The scan shows patterns consistent with a pituitary tumor. This automated result requires confirmation by a radiologist; it is not a diagnosis.",
	},
	ModelTuberculosis: {
		"Normal":       "No radiographic signs of tuberculosis were detected. This automated screening result is not a diagnosis; correlate with clinical findings.",
		"Tuberculosis": "The radiograph shows patterns consistent with tuberculosis. This is an automated screening result, not a diagnosis; sputum testing and specialist review are required.",
	},
}

// FallbackInterpretation returns the static template for a class, or a
// generic line when no template entry exists.
func FallbackInterpretation(mt ModelType, class string, confidence int) string {
	if t, ok := interpretationTemplates[mt][class]; ok {
		return t
	}
	return fmt.Sprintf("%s detected with %d%% confidence.", class, confidence)
}

// Normalize converts a raw probability vector and its model configuration
// into the canonical PredictionResult. Pure and deterministic apart from the
// timestamp: identical inputs yield identical results.
func Normalize(raw []float32, cfg ModelConfig, mt ModelType) (*PredictionResult, error) {
	if len(raw) != len(cfg.Classes) {
		return nil, fmt.Errorf("%w: got %d probabilities for %d classes (%s)",
			ErrShapeMismatch, len(raw), len(cfg.Classes), mt)
	}

	all := make([]ClassProbability, len(raw))
	for i, p := range raw {
		prob := float64(p)
		all[i] = ClassProbability{
			Class:       cfg.Classes[i],
			Probability: prob,
			Confidence:  int(math.Round(prob * 100)),
		}
	}

	// Stable sort: ties keep configured class order.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Probability > all[j].Probability
	})

	top := all[0]
	return &PredictionResult{
		ModelType:             mt,
		Prediction:            top.Class,
		Confidence:            top.Confidence,
		Probability:           top.Probability,
		IsPositive:            top.Probability >= cfg.Threshold,
		Threshold:             int(math.Round(cfg.Threshold * 100)),
		AllClasses:            all,
		MedicalInterpretation: FallbackInterpretation(mt, top.Class, top.Confidence),
		Timestamp:             time.Now().UTC(),
	}, nil
}
