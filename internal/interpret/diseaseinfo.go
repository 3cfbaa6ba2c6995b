package interpret

import "github.com/medscan/medscan/internal/classify"

// diseaseSummaries holds short static descriptions attached alongside the
// interpretation, keyed by model type and predicted class.
var diseaseSummaries = map[classify.ModelType]map[string]string{
	classify.ModelPneumonia: {
		"Pneumonia": "Pneumonia is an infection that inflames the air sacs in one or both lungs. Common symptoms include cough, fever, and difficulty breathing. Treatment depends on the cause and severity.",
	},
	classify.ModelBrainTumor: {
		"Glioma":     "Gliomas are tumors that arise from glial cells in the brain or spine. Behavior ranges from slow-growing to aggressive; management depends on grade and location.",
		"Meningioma": "Meningiomas arise from the membranes surrounding the brain and spinal cord. Most are benign and slow-growing; many are monitored rather than treated immediately.",
		"Pituitary":  "Pituitary tumors develop in the pituitary gland and are usually benign. They can affect hormone levels and may cause vision changes when large.",
	},
	classify.ModelTuberculosis: {
		"Tuberculosis": "Tuberculosis is a bacterial infection that mainly affects the lungs. Typical symptoms include a persistent cough, night sweats, and weight loss. It is treatable with a sustained course of antibiotics.",
	},
}

func diseaseInfo(mt classify.ModelType, class string) string {
	return diseaseSummaries[mt][class]
}
