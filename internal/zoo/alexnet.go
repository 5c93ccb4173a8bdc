package zoo

import "github.com/bloom-ml/bloom/internal/nn"

// buildAlexNet assembles the AlexNet feature extractor, again without the
// original 1000-way output layer.
func buildAlexNet() *nn.Sequential {
	return nn.NewSequential(
		nn.NewConv2d(3, 64, 11, 4, 2),
		nn.NewReLU(),
		nn.NewMaxPool2d(3, 2, 0),
		nn.NewConv2d(64, 192, 5, 1, 2),
		nn.NewReLU(),
		nn.NewMaxPool2d(3, 2, 0),
		nn.NewConv2d(192, 384, 3, 1, 1),
		nn.NewReLU(),
		nn.NewConv2d(384, 256, 3, 1, 1),
		nn.NewReLU(),
		nn.NewConv2d(256, 256, 3, 1, 1),
		nn.NewReLU(),
		nn.NewMaxPool2d(3, 2, 0),
		nn.NewAdaptiveAvgPool2d(6, 6),
		nn.NewFlatten(),
		nn.NewDropout(0.5),
		nn.NewLinear(256*6*6, 4096),
		nn.NewReLU(),
		nn.NewDropout(0.5),
		nn.NewLinear(4096, 4096),
		nn.NewReLU(),
	)
}
