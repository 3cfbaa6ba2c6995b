package interpret

import (
	"fmt"
	"strings"

	"github.com/medscan/medscan/internal/classify"
)

const systemPrompt = `You are a medical imaging assistant supporting triage staff.
You are given the output of an automated image classifier plus optional patient context.
Write a short interpretation (3-6 sentences) of the finding for a clinician:
what the predicted class means, how the confidence should be read, and sensible next steps.
Always state clearly that this is an automated, non-diagnostic screening result that
requires review by a qualified physician. Do not invent findings beyond the classifier output.`

// buildMessages constructs the structured prompt from the classification
// result and patient context.
func buildMessages(result *classify.PredictionResult, patient *classify.PatientInfo) []Message {
	var b strings.Builder

	b.WriteString("## Classification result\n")
	fmt.Fprintf(&b, "- Model: %s\n", result.ModelType)
	fmt.Fprintf(&b, "- Prediction: %s\n", result.Prediction)
	fmt.Fprintf(&b, "- Confidence: %d%%\n", result.Confidence)
	fmt.Fprintf(&b, "- Positive finding: %t (threshold %d%%)\n", result.IsPositive, result.Threshold)
	b.WriteString("- Class probabilities:\n")
	for _, cp := range result.AllClasses {
		fmt.Fprintf(&b, "  - %s: %.1f%%\n", cp.Class, cp.Probability*100)
	}

	if patient != nil {
		b.WriteString("\n## Patient context\n")
		if patient.Age != nil {
			fmt.Fprintf(&b, "- Age: %d\n", *patient.Age)
		}
		if patient.Weight != nil {
			fmt.Fprintf(&b, "- Weight: %.1f kg\n", *patient.Weight)
		}
		if patient.Gender != "" {
			fmt.Fprintf(&b, "- Gender: %s\n", patient.Gender)
		}
		if patient.Symptoms != "" {
			fmt.Fprintf(&b, "- Symptoms: %s\n", patient.Symptoms)
		}
		if patient.MedicalHistory != "" {
			fmt.Fprintf(&b, "- Medical history: %s\n", patient.MedicalHistory)
		}
	}

	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
