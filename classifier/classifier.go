// Package classifier configures transfer-learning image classifiers: a
// frozen pre-trained feature extractor, a trainable classification head,
// and the data pipeline that feeds them from a folder-per-class image tree.
package classifier

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/bloom-ml/bloom/internal/device"
	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/optim"
	"github.com/bloom-ml/bloom/internal/tensor"
	"github.com/bloom-ml/bloom/internal/vision/dataset"
	"github.com/bloom-ml/bloom/internal/vision/transform"
	"github.com/bloom-ml/bloom/internal/zoo"
)

// ErrMissingDataDir marks a data root whose required split directory does
// not exist.
var ErrMissingDataDir = errors.New("missing data directory")

// The three dataset splits under the data root.
const (
	SplitTest  = "test"
	SplitTrain = "train"
	SplitValid = "valid"
)

var splits = []string{SplitTest, SplitTrain, SplitValid}

// batchSize is the loader batch size for every split.
const batchSize = 64

// Classifier owns the configured model, optimizer, transforms and per-split
// data loaders. Construction is fail-fast: New either returns a fully
// usable Classifier or an error.
type Classifier struct {
	config Config
	device tensor.Device

	dataDirs   map[string]string
	transforms map[string]*transform.Pipeline
	datasets   map[string]*dataset.ImageFolder
	loaders    map[string]*dataset.Loader

	model      *Model
	optimizer  optim.Optimizer
	criterion  *nn.NLLLoss
	classNames map[int]string
}

// New builds a Classifier from the configuration: device selection,
// transform pipelines, dataset and loader assembly (when DataDir is set),
// and network initialization.
func New(config Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Classifier{
		config: config,
		device: device.Detect(config.UseGPU),
		transforms: map[string]*transform.Pipeline{
			SplitTrain: transform.Train(),
			SplitValid: transform.Eval(),
			SplitTest:  transform.Eval(),
		},
	}

	if config.DataDir != "" {
		if err := c.assembleData(); err != nil {
			return nil, err
		}
	}

	if err := c.InitNetwork(); err != nil {
		return nil, err
	}

	if err := c.resolveClassNames(); err != nil {
		return nil, err
	}
	return c, nil
}

// assembleData resolves the split directories and builds a dataset and
// loader per split. Every split must exist; a missing one is fatal.
func (c *Classifier) assembleData() error {
	c.dataDirs = make(map[string]string, len(splits))
	c.datasets = make(map[string]*dataset.ImageFolder, len(splits))
	c.loaders = make(map[string]*dataset.Loader, len(splits))

	for _, split := range splits {
		dir := filepath.Join(c.config.DataDir, split)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s split at %s", ErrMissingDataDir, split, dir)
		}
		c.dataDirs[split] = dir

		ds, err := dataset.NewImageFolder(dir, c.transforms[split])
		if err != nil {
			return fmt.Errorf("failed to build %s dataset: %w", split, err)
		}
		c.datasets[split] = ds

		loader, err := dataset.NewLoader(ds, dataset.LoaderConfig{
			BatchSize: batchSize,
			Shuffle:   split == SplitTrain,
			Device:    c.device,
		})
		if err != nil {
			return fmt.Errorf("failed to build %s loader: %w", split, err)
		}
		c.loaders[split] = loader
	}
	return nil
}

// InitNetwork (re)builds the model and optimizer from the current
// configuration. It resolves InputUnits from the extractor's introspected
// feature width, attaches a fresh classification head, and scopes an Adam
// optimizer to the head's parameters.
//
// Callable again after the configuration is reloaded externally.
func (c *Classifier) InitNetwork() error {
	extractor, err := zoo.Build(c.config.Architecture, zoo.Options{WeightsDir: c.config.WeightsDir})
	if err != nil {
		return fmt.Errorf("failed to initialize network: %w", err)
	}
	c.config.InputUnits = extractor.FeatureWidth()

	head := nn.NewSequential(
		nn.NewLinear(c.config.InputUnits, c.config.HiddenUnits),
		nn.NewReLU(),
		nn.NewDropout(c.config.Dropout),
		nn.NewLinear(c.config.HiddenUnits, c.config.OutputUnits),
		nn.NewLogSoftmax(),
	)

	c.model = &Model{
		extractor: extractor,
		head:      head,
		device:    c.device,
	}
	c.optimizer = optim.NewAdam(c.model.TrainableParameters(), optim.AdamConfig{LR: c.config.LearningRate})
	c.criterion = nn.NewNLLLoss()

	// Evaluation is the resting state. Prediction never touches the mode
	// flags again, so concurrent forward passes share the model safely;
	// a training loop opts in with Model.Train.
	c.model.Eval()
	return nil
}

// Reload swaps in an externally modified configuration and rebuilds
// everything derived from it: datasets and loaders when the data root
// changed, then the model and optimizer pair via InitNetwork.
//
// A Classifier whose Reload failed must not be used, exactly like a failed
// construction.
func (c *Classifier) Reload(config Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	previousDataDir := c.config.DataDir
	c.config = config

	if config.DataDir != previousDataDir {
		c.dataDirs, c.datasets, c.loaders = nil, nil, nil
		if config.DataDir != "" {
			if err := c.assembleData(); err != nil {
				return err
			}
		}
	}

	if err := c.InitNetwork(); err != nil {
		return err
	}
	return c.resolveClassNames()
}

// resolveClassNames picks display names for class indices: the configured
// category-names file when present, otherwise the train dataset's class
// directory names.
func (c *Classifier) resolveClassNames() error {
	if c.config.CategoryNamesFile != "" {
		names, err := LoadCategoryNames(c.config.CategoryNamesFile)
		if err != nil {
			return err
		}
		c.classNames = names
		return nil
	}
	if train, ok := c.datasets[SplitTrain]; ok {
		c.classNames = make(map[int]string, len(train.Classes()))
		for i, class := range train.Classes() {
			c.classNames[i] = class
		}
	}
	return nil
}

// Config returns the configuration, including the resolved InputUnits.
func (c *Classifier) Config() Config {
	return c.config
}

// Device returns the selected placement.
func (c *Classifier) Device() tensor.Device {
	return c.device
}

// Model returns the composed model.
func (c *Classifier) Model() *Model {
	return c.model
}

// Optimizer returns the head-scoped optimizer.
func (c *Classifier) Optimizer() optim.Optimizer {
	return c.optimizer
}

// Criterion returns the negative log-likelihood loss.
func (c *Classifier) Criterion() *nn.NLLLoss {
	return c.criterion
}

// Dataset returns the dataset for a split, or nil when no DataDir is
// configured.
func (c *Classifier) Dataset(split string) *dataset.ImageFolder {
	return c.datasets[split]
}

// Loader returns the loader for a split, or nil when no DataDir is
// configured.
func (c *Classifier) Loader(split string) *dataset.Loader {
	return c.loaders[split]
}

// ClassName returns the display name for a class index, falling back to
// the numeric index when no name is known.
func (c *Classifier) ClassName(index int) string {
	if name, ok := c.classNames[index]; ok {
		return name
	}
	return fmt.Sprintf("%d", index)
}

// Forward delegates one batch to the model.
func (c *Classifier) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return c.model.Forward(input)
}

// Summary describes the configured model for presentation surfaces.
type Summary struct {
	Architecture        string  `json:"architecture"`
	Device              string  `json:"device"`
	InputUnits          int     `json:"input_units"`
	HiddenUnits         int     `json:"hidden_units"`
	OutputUnits         int     `json:"output_units"`
	Dropout             float64 `json:"dropout"`
	TotalParameters     int     `json:"total_parameters"`
	TrainableParameters int     `json:"trainable_parameters"`
}

// Summary reports the model geometry and parameter counts.
func (c *Classifier) Summary() Summary {
	return Summary{
		Architecture:        c.config.Architecture,
		Device:              c.device.String(),
		InputUnits:          c.config.InputUnits,
		HiddenUnits:         c.config.HiddenUnits,
		OutputUnits:         c.config.OutputUnits,
		Dropout:             c.config.Dropout,
		TotalParameters:     nn.NumElements(c.model.Parameters()),
		TrainableParameters: nn.NumElements(c.model.TrainableParameters()),
	}
}

// Prediction is one ranked class with its probability.
type Prediction struct {
	Index       int     `json:"index"`
	Class       string  `json:"class"`
	Probability float64 `json:"probability"`
}

// Predict classifies the image at path and returns the topK most probable
// classes, most probable first.
func (c *Classifier) Predict(path string, topK int) ([]Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return c.PredictImage(img, topK)
}

// PredictImage classifies a decoded image.
func (c *Classifier) PredictImage(img image.Image, topK int) ([]Prediction, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if topK > c.config.OutputUnits {
		topK = c.config.OutputUnits
	}

	sample := c.transforms[SplitTest].Apply(img)
	shape := sample.Shape()
	input := sample.Reshape(1, shape[0], shape[1], shape[2]).To(c.device)

	logProbs, err := c.model.Forward(input)
	if err != nil {
		return nil, err
	}

	predictions := make([]Prediction, c.config.OutputUnits)
	for i := 0; i < c.config.OutputUnits; i++ {
		predictions[i] = Prediction{
			Index:       i,
			Class:       c.ClassName(i),
			Probability: math.Exp(float64(logProbs.At(0, i))),
		}
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})
	return predictions[:topK], nil
}
