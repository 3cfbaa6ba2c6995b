package medscan

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/medscan/medscan/internal/classify"
)

func init() {
	color.NoColor = true
}

func testResult() *classify.PredictionResult {
	return &classify.PredictionResult{
		ModelType:   classify.ModelPneumonia,
		Prediction:  "Pneumonia",
		Confidence:  87,
		Probability: 0.87,
		IsPositive:  true,
		Threshold:   50,
		AllClasses: []classify.ClassProbability{
			{Class: "Pneumonia", Probability: 0.87, Confidence: 87},
			{Class: "Normal", Probability: 0.13, Confidence: 13},
		},
		GeminiInterpretation: "The image shows findings consistent with pneumonia.",
		DiseaseInfo:          "Pneumonia is an infection of the lungs.",
		Timestamp:            time.Now().UTC(),
		Source:               classify.SourceModel,
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, testResult())

	s := out.String()
	assert.Contains(t, s, "PNEUMONIA")
	assert.Contains(t, s, "Confidence: 87%")
	assert.Contains(t, s, "Normal")
	assert.Contains(t, s, "findings consistent with pneumonia")
	assert.Contains(t, s, "infection of the lungs")
	assert.NotContains(t, s, "source:")
}

func TestPrintResultShowsNonModelSource(t *testing.T) {
	r := testResult()
	r.Source = classify.SourceMock
	var out bytes.Buffer
	printResult(&out, r)

	assert.Contains(t, out.String(), "source: mock")
}

func TestPrintConfidenceBar(t *testing.T) {
	var out bytes.Buffer
	printConfidenceBar(&out, 50)

	s := out.String()
	assert.Contains(t, s, "Confidence: 50%")
	assert.Contains(t, s, "█")
	assert.Contains(t, s, "░")
}

func TestPrintConfidenceBarClamps(t *testing.T) {
	var out bytes.Buffer
	printConfidenceBar(&out, 150)
	assert.Contains(t, out.String(), "Confidence: 150%")
}
