package nn

import (
	"fmt"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// Conv2d is a 2D convolutional layer.
//
// Input:  [batch, in_channels, height, width]
// Weight: [out_channels, in_channels, kernel_h, kernel_w]
// Output: [batch, out_channels, out_h, out_w]
//
// where out_h = (height + 2*padding - kernel_h)/stride + 1, and likewise for
// out_w. The convolution is computed by lowering each sample to a column
// matrix (im2col) and multiplying with the flattened kernel bank, so the
// inner loop is a single dense matrix product.
type Conv2d struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      int
	padding     int

	weight *Parameter // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter // [out_channels]
}

// NewConv2d creates a Conv2d layer with Xavier-initialized weights and zero
// biases.
func NewConv2d(inChannels, outChannels, kernelSize, stride, padding int) *Conv2d {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 || stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid geometry kernel=%d stride=%d padding=%d", kernelSize, stride, padding))
	}

	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weight := NewParameter("weight",
		Xavier(fanIn, fanOut, tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}))
	bias := NewParameter("bias", Zeros(tensor.Shape{outChannels}))

	return &Conv2d{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  [2]int{kernelSize, kernelSize},
		stride:      stride,
		padding:     padding,
		weight:      weight,
		bias:        bias,
	}
}

// Forward performs the convolution.
func (c *Conv2d) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %v", shape))
	}
	if shape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: expected %d input channels, got %d", c.inChannels, shape[1]))
	}

	batch, height, width := shape[0], shape[2], shape[3]
	kh, kw := c.kernelSize[0], c.kernelSize[1]
	outH := (height+2*c.padding-kh)/c.stride + 1
	outW := (width+2*c.padding-kw)/c.stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("conv2d: input %v too small for kernel %d stride %d padding %d",
			shape, kh, c.stride, c.padding))
	}

	// Kernel bank flattened to [out_channels, in_channels*kh*kw].
	w2d := c.weight.Tensor().Reshape(c.outChannels, c.inChannels*kh*kw)
	biasData := c.bias.Tensor().Data()

	out := tensor.ZerosOn(tensor.Shape{batch, c.outChannels, outH, outW}, input.Device())
	outData := out.Data()
	inData := input.Data()
	sampleSize := c.inChannels * height * width
	outSampleSize := c.outChannels * outH * outW

	for n := 0; n < batch; n++ {
		cols := c.im2col(inData[n*sampleSize:(n+1)*sampleSize], height, width, outH, outW)
		prod := w2d.MatMul(cols) // [out_channels, outH*outW]

		prodData := prod.Data()
		plane := outH * outW
		for oc := 0; oc < c.outChannels; oc++ {
			b := biasData[oc]
			dst := outData[n*outSampleSize+oc*plane : n*outSampleSize+(oc+1)*plane]
			src := prodData[oc*plane : (oc+1)*plane]
			for i, v := range src {
				dst[i] = v + b
			}
		}
	}
	return out
}

// im2col lowers one padded sample to a [in_channels*kh*kw, outH*outW] matrix.
func (c *Conv2d) im2col(sample []float32, height, width, outH, outW int) *tensor.Tensor {
	kh, kw := c.kernelSize[0], c.kernelSize[1]
	rows := c.inChannels * kh * kw
	cols := tensor.Zeros(tensor.Shape{rows, outH * outW})
	colsData := cols.Data()

	row := 0
	for ic := 0; ic < c.inChannels; ic++ {
		channel := sample[ic*height*width : (ic+1)*height*width]
		for ky := 0; ky < kh; ky++ {
			for kx := 0; kx < kw; kx++ {
				col := 0
				for oy := 0; oy < outH; oy++ {
					iy := oy*c.stride + ky - c.padding
					for ox := 0; ox < outW; ox++ {
						ix := ox*c.stride + kx - c.padding
						if iy >= 0 && iy < height && ix >= 0 && ix < width {
							colsData[row*outH*outW+col] = channel[iy*width+ix]
						}
						col++
					}
				}
				row++
			}
		}
	}
	return cols
}

// Parameters returns [weight, bias].
func (c *Conv2d) Parameters() []*Parameter {
	return []*Parameter{c.weight, c.bias}
}

// OutChannels returns the number of filters, which is the channel width of
// the layer's output.
func (c *Conv2d) OutChannels() int {
	return c.outChannels
}

// StateDict returns {"weight": W, "bias": b}.
func (c *Conv2d) StateDict() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"weight": c.weight.Tensor(),
		"bias":   c.bias.Tensor(),
	}
}

// LoadStateDict copies weight and bias from the state dictionary.
func (c *Conv2d) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	if err := loadInto(stateDict, "weight", c.weight.Tensor()); err != nil {
		return err
	}
	return loadInto(stateDict, "bias", c.bias.Tensor())
}
