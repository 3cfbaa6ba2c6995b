package classify

import "strings"

// Keyword groups per model type, matched case-insensitively as substrings.
// Lists are bilingual (English and Spanish) because patient symptom text
// arrives in both languages.
var selectorKeywords = map[ModelType]struct {
	filename []string
	clinical []string
}{
	ModelPneumonia: {
		filename: []string{"xray", "x-ray", "chest", "lung", "pneumonia", "torax", "pecho"},
		clinical: []string{
			"cough", "fever", "breath", "chest pain", "phlegm", "pneumonia",
			"tos", "fiebre", "pulmon", "pecho", "flema",
		},
	},
	ModelBrainTumor: {
		filename: []string{"brain", "mri", "head", "tumor", "cranial", "cerebro", "cabeza"},
		clinical: []string{
			"headache", "seizure", "vision", "dizziness", "memory", "tumor", "nausea",
			"dolor de cabeza", "convulsion", "mareo", "vision borrosa",
		},
	},
	ModelTuberculosis: {
		filename: []string{"tb", "tuberculosis", "tbc"},
		clinical: []string{
			"tuberculosis", "night sweat", "weight loss", "blood in sputum", "hemoptysis",
			"sudor nocturno", "perdida de peso", "tos con sangre",
		},
	},
}

const (
	filenameWeight = 3
	clinicalWeight = 2
)

// SelectModel chooses a model type from filename and patient-text signals.
// Each matched filename keyword contributes 3 points, each matched
// symptom/history keyword 2 points. Zero total signal defaults to pneumonia;
// ties resolve by fixed priority order, so the result is deterministic.
func SelectModel(filename string, patient *PatientInfo) ModelType {
	filename = strings.ToLower(filename)
	var clinical string
	if patient != nil {
		clinical = strings.ToLower(patient.Symptoms + " " + patient.MedicalHistory)
	}

	best := ModelPneumonia
	bestScore := 0
	for _, mt := range modelPriority {
		kw := selectorKeywords[mt]
		score := 0
		for _, k := range kw.filename {
			if strings.Contains(filename, k) {
				score += filenameWeight
			}
		}
		for _, k := range kw.clinical {
			if clinical != "" && strings.Contains(clinical, k) {
				score += clinicalWeight
			}
		}
		// Strict > keeps the first type in priority order on ties.
		if score > bestScore {
			best = mt
			bestScore = score
		}
	}
	return best
}
