// Package zoo is the registry of pre-trained feature extractor
// architectures.
//
// The registry is an explicit, closed mapping from architecture name to
// builder. There is no reflective lookup: an unknown name fails with
// ErrUnknownArchitecture before any model is constructed.
//
// Every extractor leaves Build with all of its parameters frozen. That is
// not configurable; only the classification head attached downstream ever
// trains.
package zoo

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/serialization"
	"github.com/bloom-ml/bloom/internal/tensor"
)

// ErrUnknownArchitecture marks a name that is not in the registry.
var ErrUnknownArchitecture = errors.New("unknown architecture")

// registry holds the supported architecture families. Keys are the public
// architecture identifiers accepted in configuration.
var registry = map[string]func() *nn.Sequential{
	"alexnet":  buildAlexNet,
	"vgg11":    func() *nn.Sequential { return buildVGG(vggConfigs["vgg11"]) },
	"vgg13":    func() *nn.Sequential { return buildVGG(vggConfigs["vgg13"]) },
	"vgg16":    func() *nn.Sequential { return buildVGG(vggConfigs["vgg16"]) },
	"vgg19":    func() *nn.Sequential { return buildVGG(vggConfigs["vgg19"]) },
	"resnet18": func() *nn.Sequential { return buildResNet([4]int{2, 2, 2, 2}) },
	"resnet34": func() *nn.Sequential { return buildResNet([4]int{3, 4, 6, 3}) },
}

// Architectures returns the sorted list of registered architecture names.
func Architectures() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures extractor construction.
type Options struct {
	// WeightsDir is the directory holding published weight files, one
	// "<architecture>.safetensors" per architecture. When empty, the
	// extractor keeps its standard initialization, which supports
	// offline and testing use.
	WeightsDir string
}

// Extractor is a frozen, pre-trained feature extractor: everything of the
// original network up to (but excluding) its final classification layer.
type Extractor struct {
	name     string
	features *nn.Sequential
	width    int
}

// Build resolves an architecture name, instantiates the extractor, loads
// its published weights when a weights directory is configured, and freezes
// every parameter.
func Build(name string, opts Options) (*Extractor, error) {
	builder, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchitecture, name)
	}

	features := builder()
	width, err := featureWidth(features)
	if err != nil {
		return nil, fmt.Errorf("architecture %q: %w", name, err)
	}

	ex := &Extractor{
		name:     name,
		features: features,
		width:    width,
	}

	if opts.WeightsDir != "" {
		path := filepath.Join(opts.WeightsDir, name+".safetensors")
		stateDict, err := serialization.ReadStateDict(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load published weights for %q: %w", name, err)
		}
		if err := ex.features.LoadStateDict(stateDict); err != nil {
			return nil, fmt.Errorf("published weights for %q do not match the architecture: %w", name, err)
		}
	}

	nn.Freeze(ex.features)
	return ex, nil
}

// Name returns the architecture identifier.
func (e *Extractor) Name() string {
	return e.name
}

// FeatureWidth returns the width of the feature vector the extractor
// produces, introspected from its module graph at build time.
func (e *Extractor) FeatureWidth() int {
	return e.width
}

// Forward produces [batch, FeatureWidth] features from [batch, 3, H, W]
// images.
func (e *Extractor) Forward(input *tensor.Tensor) *tensor.Tensor {
	return e.features.Forward(input)
}

// Parameters returns the extractor's (frozen) parameters.
func (e *Extractor) Parameters() []*nn.Parameter {
	return e.features.Parameters()
}

// StateDict returns the extractor's weights.
func (e *Extractor) StateDict() map[string]*tensor.Tensor {
	return e.features.StateDict()
}

// LoadStateDict loads weights into the extractor.
func (e *Extractor) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	return e.features.LoadStateDict(stateDict)
}

// SetTraining propagates the training flag to the feature stack. VGG and
// AlexNet carry dropout in their fully connected blocks, so the mode matters
// even though the extractor never trains.
func (e *Extractor) SetTraining(training bool) {
	nn.SetTraining(e.features, training)
}

// channelReporter is implemented by modules whose output width is a channel
// count (Conv2d, residual blocks).
type channelReporter interface {
	OutChannels() int
}

// featureWidth walks the module graph backwards to the last width-bearing
// layer. This is how the head's input size is determined: from the built
// architecture itself, never from a side table.
func featureWidth(seq *nn.Sequential) (int, error) {
	for i := seq.Len() - 1; i >= 0; i-- {
		switch m := seq.Module(i).(type) {
		case *nn.Linear:
			return m.OutFeatures(), nil
		case *nn.BatchNorm2d:
			return m.NumFeatures(), nil
		case channelReporter:
			return m.OutChannels(), nil
		}
	}
	return 0, errors.New("no width-bearing layer in feature stack")
}
