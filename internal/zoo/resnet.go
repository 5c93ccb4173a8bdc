package zoo

import (
	"fmt"

	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/tensor"
)

// basicBlock is the two-convolution residual block used by ResNet-18 and
// ResNet-34. When the block changes resolution or width, a 1x1 projection
// brings the identity branch to the same shape.
type basicBlock struct {
	conv1 *nn.Conv2d
	bn1   *nn.BatchNorm2d
	conv2 *nn.Conv2d
	bn2   *nn.BatchNorm2d
	relu  *nn.ReLU

	downConv *nn.Conv2d
	downBN   *nn.BatchNorm2d

	outChannels int
}

func newBasicBlock(inChannels, outChannels, stride int) *basicBlock {
	b := &basicBlock{
		conv1:       nn.NewConv2d(inChannels, outChannels, 3, stride, 1),
		bn1:         nn.NewBatchNorm2d(outChannels),
		conv2:       nn.NewConv2d(outChannels, outChannels, 3, 1, 1),
		bn2:         nn.NewBatchNorm2d(outChannels),
		relu:        nn.NewReLU(),
		outChannels: outChannels,
	}
	if stride != 1 || inChannels != outChannels {
		b.downConv = nn.NewConv2d(inChannels, outChannels, 1, stride, 0)
		b.downBN = nn.NewBatchNorm2d(outChannels)
	}
	return b
}

// Forward applies both convolution stages and adds the identity branch.
func (b *basicBlock) Forward(input *tensor.Tensor) *tensor.Tensor {
	out := b.relu.Forward(b.bn1.Forward(b.conv1.Forward(input)))
	out = b.bn2.Forward(b.conv2.Forward(out))

	identity := input
	if b.downConv != nil {
		identity = b.downBN.Forward(b.downConv.Forward(input))
	}
	return b.relu.Forward(out.Add(identity))
}

// OutChannels returns the block's output channel count.
func (b *basicBlock) OutChannels() int {
	return b.outChannels
}

func (b *basicBlock) Parameters() []*nn.Parameter {
	params := append([]*nn.Parameter{}, b.conv1.Parameters()...)
	params = append(params, b.bn1.Parameters()...)
	params = append(params, b.conv2.Parameters()...)
	params = append(params, b.bn2.Parameters()...)
	if b.downConv != nil {
		params = append(params, b.downConv.Parameters()...)
		params = append(params, b.downBN.Parameters()...)
	}
	return params
}

// children returns the named sub-modules in a stable order.
func (b *basicBlock) children() map[string]nn.Module {
	modules := map[string]nn.Module{
		"conv1": b.conv1,
		"bn1":   b.bn1,
		"conv2": b.conv2,
		"bn2":   b.bn2,
	}
	if b.downConv != nil {
		modules["downsample.0"] = b.downConv
		modules["downsample.1"] = b.downBN
	}
	return modules
}

func (b *basicBlock) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for prefix, child := range b.children() {
		for name, t := range child.StateDict() {
			stateDict[prefix+"."+name] = t
		}
	}
	return stateDict
}

func (b *basicBlock) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	for prefix, child := range b.children() {
		sub := make(map[string]*tensor.Tensor)
		for name, t := range stateDict {
			if len(name) > len(prefix) && name[:len(prefix)+1] == prefix+"." {
				sub[name[len(prefix)+1:]] = t
			}
		}
		if err := child.LoadStateDict(sub); err != nil {
			return fmt.Errorf("failed to load %s: %w", prefix, err)
		}
	}
	return nil
}

// buildResNet assembles a basic-block ResNet feature extractor. blocks
// gives the number of residual blocks per stage; [2 2 2 2] is ResNet-18
// and [3 4 6 3] is ResNet-34.
func buildResNet(blocks [4]int) *nn.Sequential {
	seq := nn.NewSequential(
		nn.NewConv2d(3, 64, 7, 2, 3),
		nn.NewBatchNorm2d(64),
		nn.NewReLU(),
		nn.NewMaxPool2d(3, 2, 1),
	)

	widths := [4]int{64, 128, 256, 512}
	channels := 64
	for stage := 0; stage < 4; stage++ {
		stride := 2
		if stage == 0 {
			stride = 1
		}
		for i := 0; i < blocks[stage]; i++ {
			if i > 0 {
				stride = 1
			}
			seq.Add(newBasicBlock(channels, widths[stage], stride))
			channels = widths[stage]
		}
	}

	seq.Add(nn.NewAdaptiveAvgPool2d(1, 1))
	seq.Add(nn.NewFlatten())
	return seq
}
