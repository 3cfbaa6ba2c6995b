// Package classify implements the model registry, backend adapters, and
// result normalization for the triage pipeline.
package classify

import (
	"context"
	"time"
)

// ModelType identifies a supported classification task.
type ModelType string

const (
	ModelPneumonia    ModelType = "pneumonia"
	ModelBrainTumor   ModelType = "brainTumor"
	ModelTuberculosis ModelType = "tuberculosis"
)

// modelPriority is the fixed iteration order used for tie-breaking and
// registry listing. Order matters: the auto-selector resolves score ties by
// first position in this list.
var modelPriority = []ModelType{ModelPneumonia, ModelBrainTumor, ModelTuberculosis}

// ModelTypes returns all supported model types in priority order.
func ModelTypes() []ModelType {
	out := make([]ModelType, len(modelPriority))
	copy(out, modelPriority)
	return out
}

// ParseModelType parses a user-supplied model type string. The empty string
// and "auto" are sentinels meaning "let the selector decide" and return
// ok=false without an error.
func ParseModelType(s string) (ModelType, bool) {
	switch ModelType(s) {
	case ModelPneumonia, ModelBrainTumor, ModelTuberculosis:
		return ModelType(s), true
	}
	return "", false
}

// ModelConfig holds per-model-type configuration.
type ModelConfig struct {
	// InputShape is height, width, channels.
	InputShape [3]int `yaml:"input_shape"`
	// Classes is the ordered label list; its length must match the
	// backend's output vector length.
	Classes []string `yaml:"classes"`
	// Threshold is the decision cutoff in (0,1) for a positive finding.
	Threshold float64 `yaml:"threshold"`
	// ArtifactPath is the local ONNX model file for this type.
	ArtifactPath string `yaml:"artifact_path"`
	// ArtifactURL is the remote artifact location used by the remote backend.
	ArtifactURL string `yaml:"artifact_url"`
}

// PatientInfo carries optional patient metadata attached to a prediction
// request. Immutable once attached.
type PatientInfo struct {
	PatientID      string   `json:"patientId,omitempty"`
	PatientName    string   `json:"patientName,omitempty"`
	Age            *int     `json:"age,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	Symptoms       string   `json:"symptoms,omitempty"`
	MedicalHistory string   `json:"medicalHistory,omitempty"`
}

// ClassProbability is one entry of the per-class probability breakdown.
type ClassProbability struct {
	Class       string  `json:"class"`
	Probability float64 `json:"probability"`
	Confidence  int     `json:"confidence"`
}

// PredictionResult is the canonical output of a classification. The fields up
// to Timestamp are set once by Normalize and never mutated; the optional
// fields below are appended by the enricher and the orchestrator.
type PredictionResult struct {
	ModelType             ModelType          `json:"modelType"`
	Prediction            string             `json:"prediction"`
	Confidence            int                `json:"confidence"`
	Probability           float64            `json:"probability"`
	IsPositive            bool               `json:"isPositive"`
	Threshold             int                `json:"threshold"`
	AllClasses            []ClassProbability `json:"allClasses"`
	MedicalInterpretation string             `json:"medicalInterpretation"`
	Timestamp             time.Time          `json:"timestamp"`

	GeminiInterpretation string `json:"geminiInterpretation,omitempty"`
	DiseaseInfo          string `json:"diseaseInfo,omitempty"`
	ProcessingTimeMS     int64  `json:"processingTime,omitempty"`
	Source               string `json:"source,omitempty"`
}

// Input is the raw material handed to a backend adapter. Filename and Hints
// only matter to the demo backend's heuristics; real backends ignore them.
type Input struct {
	Bytes    []byte
	Filename string
	Hints    string
}

// Output is a backend's raw classification. Source records whether the
// probabilities came from a real model ("model"), a substituted mock
// ("mock"), or the demo heuristics ("demo").
type Output struct {
	Probs  []float32
	Source string
}

// Backend runs inference for a model type.
type Backend interface {
	Classify(ctx context.Context, in Input, mt ModelType) (*Output, error)
}

const (
	SourceModel = "model"
	SourceMock  = "mock"
	SourceDemo  = "demo"
)
