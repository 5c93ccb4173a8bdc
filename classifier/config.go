package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the classifier's configuration record. Every field is named and
// typed; there is no loose key/value bag behind it.
//
// InputUnits is resolved from the architecture during InitNetwork and must
// not be set by the caller: the feature width belongs to the extractor, not
// to the user.
type Config struct {
	// DataDir is the root of the labeled image tree, holding test/, train/
	// and valid/ splits. Empty means no datasets are assembled and the
	// classifier is usable for prediction only.
	DataDir string `json:"data_dir" toml:"data_dir"`

	// Architecture names the pre-trained feature extractor. Must be one of
	// the registered architectures.
	Architecture string `json:"architecture" toml:"architecture"`

	Dropout      float64 `json:"dropout" toml:"dropout"`
	Epochs       int     `json:"epochs" toml:"epochs"`
	HiddenUnits  int     `json:"hidden_units" toml:"hidden_units"`
	LearningRate float64 `json:"learning_rate" toml:"learning_rate"`

	// InputUnits is the width of the extractor's feature vector. Resolved
	// during InitNetwork; serialized so a checkpointed configuration records
	// the head geometry it was built with.
	InputUnits int `json:"input_units" toml:"input_units"`

	// OutputUnits is the number of classes.
	OutputUnits int `json:"output_units" toml:"output_units"`

	// UseGPU requests accelerator placement when an adapter is available.
	UseGPU bool `json:"use_gpu" toml:"use_gpu"`

	// WeightsDir holds the published extractor weight files. Empty keeps
	// the extractor's standard initialization.
	WeightsDir string `json:"weights_dir" toml:"weights_dir"`

	// CategoryNamesFile is an optional JSON file mapping class indices to
	// display names.
	CategoryNamesFile string `json:"category_names_file" toml:"category_names_file"`
}

// DefaultConfig returns the stock configuration: a vgg16 extractor with a
// 512-unit hidden layer over 102 classes.
func DefaultConfig() Config {
	return Config{
		Architecture: "vgg16",
		Dropout:      0.2,
		Epochs:       1,
		HiddenUnits:  512,
		LearningRate: 0.001,
		OutputUnits:  102,
		UseGPU:       true,
	}
}

// LoadConfig reads a TOML configuration file over the defaults: fields
// absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the caller-settable fields.
func (c Config) Validate() error {
	if c.Architecture == "" {
		return fmt.Errorf("architecture must be set")
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}
	if c.HiddenUnits <= 0 {
		return fmt.Errorf("hidden units must be positive, got %d", c.HiddenUnits)
	}
	if c.OutputUnits <= 0 {
		return fmt.Errorf("output units must be positive, got %d", c.OutputUnits)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs cannot be negative, got %d", c.Epochs)
	}
	return nil
}

// LoadCategoryNames reads a JSON file mapping class indices (as string
// keys, the common interchange form) to display names.
func LoadCategoryNames(path string) (map[int]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category names %s: %w", path, err)
	}
	byKey := make(map[string]string)
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("failed to parse category names %s: %w", path, err)
	}
	names := make(map[int]string, len(byKey))
	for key, name := range byKey {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("category names %s: key %q is not an index", path, key)
		}
		names[index] = name
	}
	return names, nil
}
