package zoo

import "github.com/bloom-ml/bloom/internal/nn"

// poolMarker stands for a max-pooling stage in a VGG layer plan.
const poolMarker = -1

// vggConfigs are the per-variant convolution plans. Positive entries are
// output channel counts of 3x3 convolutions, poolMarker inserts a 2x2
// max pool.
var vggConfigs = map[string][]int{
	"vgg11": {64, poolMarker, 128, poolMarker, 256, 256, poolMarker, 512, 512, poolMarker, 512, 512, poolMarker},
	"vgg13": {64, 64, poolMarker, 128, 128, poolMarker, 256, 256, poolMarker, 512, 512, poolMarker, 512, 512, poolMarker},
	"vgg16": {64, 64, poolMarker, 128, 128, poolMarker, 256, 256, 256, poolMarker, 512, 512, 512, poolMarker, 512, 512, 512, poolMarker},
	"vgg19": {64, 64, poolMarker, 128, 128, poolMarker, 256, 256, 256, 256, poolMarker, 512, 512, 512, 512, poolMarker, 512, 512, 512, 512, poolMarker},
}

// buildVGG assembles a VGG feature extractor: the convolutional stack plus
// the two fully connected 4096-wide blocks. The original 1000-way output
// layer is omitted; the classification head replaces it.
func buildVGG(plan []int) *nn.Sequential {
	seq := nn.NewSequential()

	channels := 3
	for _, entry := range plan {
		if entry == poolMarker {
			seq.Add(nn.NewMaxPool2d(2, 2, 0))
			continue
		}
		seq.Add(nn.NewConv2d(channels, entry, 3, 1, 1))
		seq.Add(nn.NewReLU())
		channels = entry
	}

	seq.Add(nn.NewAdaptiveAvgPool2d(7, 7))
	seq.Add(nn.NewFlatten())
	seq.Add(nn.NewLinear(512*7*7, 4096))
	seq.Add(nn.NewReLU())
	seq.Add(nn.NewDropout(0.5))
	seq.Add(nn.NewLinear(4096, 4096))
	seq.Add(nn.NewReLU())
	seq.Add(nn.NewDropout(0.5))
	return seq
}
