package medscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/medscan/medscan/internal/classify"
	"github.com/medscan/medscan/internal/interpret"
)

var (
	classifyModel    string
	classifyBackend  string
	classifyFormat   string
	classifyConfig   string
	classifySymptoms string
	classifyHistory  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify a medical image",
	Long: `Classify a local medical image and print the result.

Without --model, the model is chosen from the filename and symptoms.

Examples:
  medscan classify ./chest_xray.png
  medscan classify ./scan.png --model brainTumor
  medscan classify ./xray.jpg --symptoms "persistent cough" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyModel, "model", "m", "auto", "Model type (pneumonia, brainTumor, tuberculosis, auto)")
	classifyCmd.Flags().StringVarP(&classifyBackend, "backend", "b", "demo", "Classification backend (demo, onnx)")
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "text", "Output format (text, json)")
	classifyCmd.Flags().StringVarP(&classifyConfig, "config", "c", "", "Model config YAML file")
	classifyCmd.Flags().StringVar(&classifySymptoms, "symptoms", "", "Patient symptoms, used as a selection hint")
	classifyCmd.Flags().StringVar(&classifyHistory, "history", "", "Patient medical history")
}

func runClassify(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	configs := classify.DefaultConfigs()
	if classifyConfig != "" {
		configs, err = classify.LoadConfigs(classifyConfig)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	var backend classify.Backend
	switch classifyBackend {
	case "onnx":
		b := classify.NewONNXBackend(configs)
		defer b.Close()
		backend = b
	case "demo":
		backend = classify.NewDemoBackend(configs)
	default:
		return fmt.Errorf("unknown backend %q (expected demo or onnx)", classifyBackend)
	}
	registry := classify.NewRegistry(configs, backend)

	patient := &classify.PatientInfo{
		Symptoms:       classifySymptoms,
		MedicalHistory: classifyHistory,
	}

	modelType, ok := classify.ParseModelType(classifyModel)
	if !ok {
		if classifyModel != "" && classifyModel != "auto" {
			return fmt.Errorf("unknown model type %q", classifyModel)
		}
		modelType = classify.SelectModel(filepath.Base(path), patient)
		fmt.Fprintf(os.Stderr, "Selected model: %s\n", modelType)
	}

	stop := startSpinner(fmt.Sprintf(" Classifying with %s model...", modelType))
	result, err := registry.Predict(context.Background(), classify.Input{
		Bytes:    data,
		Filename: filepath.Base(path),
		Hints:    classifySymptoms + " " + classifyHistory,
	}, modelType)
	stop()
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	enricher := enricherFromEnv()
	enrichment := enricher.Enrich(context.Background(), result, patient)
	result.GeminiInterpretation = enrichment.Interpretation
	result.DiseaseInfo = enrichment.DiseaseInfo

	if classifyFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(os.Stdout, result)
	return nil
}

// enricherFromEnv builds the LLM chain from whichever API keys are set.
// Without keys the enricher falls back to template interpretations.
func enricherFromEnv() *interpret.Enricher {
	var providers []interpret.Client
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		providers = append(providers, interpret.NewGoogleClient(key, os.Getenv("GEMINI_MODEL")))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers = append(providers, interpret.NewOpenAIClient(key, os.Getenv("OPENAI_MODEL")))
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		providers = append(providers, interpret.NewAnthropicClient(key, os.Getenv("ANTHROPIC_MODEL")))
	}
	return interpret.NewEnricher(providers...)
}

// startSpinner shows a progress spinner when stderr is a terminal. The
// returned func stops it.
func startSpinner(message string) func() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(message))
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = message
	s.Start()
	return s.Stop
}

func printResult(w io.Writer, r *classify.PredictionResult) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	_, _ = bold.Fprintf(w, "%s\n", strings.ToUpper(r.Prediction))
	printConfidenceBar(w, r.Confidence)
	if r.Source != classify.SourceModel {
		_, _ = dim.Fprintf(w, "  (source: %s)\n", r.Source)
	}
	fmt.Fprintln(w)

	_, _ = bold.Fprintln(w, "ALL CLASSES")
	for _, c := range r.AllClasses {
		fmt.Fprintf(w, "  %-24s %3d%%\n", c.Class, c.Confidence)
	}
	fmt.Fprintln(w)

	_, _ = bold.Fprintln(w, "INTERPRETATION")
	fmt.Fprintln(w, r.GeminiInterpretation)
	if r.DiseaseInfo != "" {
		fmt.Fprintln(w)
		_, _ = dim.Fprintln(w, r.DiseaseInfo)
	}
}

func printConfidenceBar(w io.Writer, confidence int) {
	const barWidth = 24
	filled := confidence * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}

	var barColor *color.Color
	switch {
	case confidence >= 80:
		barColor = color.New(color.FgGreen)
	case confidence >= 40:
		barColor = color.New(color.FgYellow)
	default:
		barColor = color.New(color.FgRed)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(w, "  Confidence: %d%% ", confidence)
	_, _ = barColor.Fprint(w, bar)
	fmt.Fprintln(w)
}
