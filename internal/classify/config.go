package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigs returns the built-in per-model configuration. A models.yaml
// file can override any of these entries.
func DefaultConfigs() map[ModelType]ModelConfig {
	return map[ModelType]ModelConfig{
		ModelPneumonia: {
			InputShape:   [3]int{224, 224, 3},
			Classes:      []string{"Normal", "Pneumonia"},
			Threshold:    0.5,
			ArtifactPath: "models/pneumonia.onnx",
		},
		ModelBrainTumor: {
			InputShape:   [3]int{224, 224, 3},
			Classes:      []string{"Glioma", "Meningioma", "No Tumor", "Pituitary"},
			Threshold:    0.5,
			ArtifactPath: "models/brain_tumor.onnx",
		},
		ModelTuberculosis: {
			InputShape:   [3]int{224, 224, 3},
			Classes:      []string{"Normal", "Tuberculosis"},
			Threshold:    0.5,
			ArtifactPath: "models/tuberculosis.onnx",
		},
	}
}

// registryFile is the on-disk shape of models.yaml.
type registryFile struct {
	Models map[ModelType]ModelConfig `yaml:"models"`
}

// LoadConfigs reads a models.yaml file and merges it over the defaults.
// Entries for unknown model types are rejected. A missing path argument
// returns the defaults unchanged.
func LoadConfigs(path string) (map[ModelType]ModelConfig, error) {
	configs := DefaultConfigs()
	if path == "" {
		return configs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}

	for mt, cfg := range file.Models {
		base, ok := configs[mt]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownModelType, mt, path)
		}
		configs[mt] = mergeConfig(base, cfg)
	}

	for mt, cfg := range configs {
		if err := validateConfig(cfg); err != nil {
			return nil, fmt.Errorf("model %s: %w", mt, err)
		}
	}

	return configs, nil
}

func mergeConfig(base, override ModelConfig) ModelConfig {
	out := base
	if override.InputShape != [3]int{} {
		out.InputShape = override.InputShape
	}
	if len(override.Classes) > 0 {
		out.Classes = override.Classes
	}
	if override.Threshold != 0 {
		out.Threshold = override.Threshold
	}
	if override.ArtifactPath != "" {
		out.ArtifactPath = override.ArtifactPath
	}
	if override.ArtifactURL != "" {
		out.ArtifactURL = override.ArtifactURL
	}
	return out
}

func validateConfig(cfg ModelConfig) error {
	// A classifier needs a decision to make; one class cannot express
	// normal versus abnormal.
	if len(cfg.Classes) < 2 {
		return fmt.Errorf("class list needs at least two entries, got %d", len(cfg.Classes))
	}
	seen := make(map[string]bool, len(cfg.Classes))
	for _, c := range cfg.Classes {
		if seen[c] {
			return fmt.Errorf("duplicate class label %q", c)
		}
		seen[c] = true
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return fmt.Errorf("threshold %v outside (0,1)", cfg.Threshold)
	}
	for _, d := range cfg.InputShape {
		if d <= 0 {
			return fmt.Errorf("input shape %v has non-positive dimension", cfg.InputShape)
		}
	}
	return nil
}
