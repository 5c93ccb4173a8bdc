package nn

import (
	"fmt"
	"math"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// MaxPool2d reduces spatial dimensions by taking the maximum over each
// window. It has no parameters.
//
// Input:  [batch, channels, height, width]
// Output: [batch, channels, out_h, out_w]
type MaxPool2d struct {
	kernelSize int
	stride     int
	padding    int
}

// NewMaxPool2d creates a MaxPool2d layer.
//
// Common configurations: (2, 2, 0) halves spatial dimensions; (3, 2, 1) is
// the overlapping pool ResNet uses after its stem convolution.
func NewMaxPool2d(kernelSize, stride, padding int) *MaxPool2d {
	if kernelSize <= 0 || stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("maxpool2d: invalid geometry kernel=%d stride=%d padding=%d", kernelSize, stride, padding))
	}
	return &MaxPool2d{kernelSize: kernelSize, stride: stride, padding: padding}
}

// Forward applies max pooling. Padded positions count as -inf.
func (p *MaxPool2d) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %v", shape))
	}
	batch, channels, height, width := shape[0], shape[1], shape[2], shape[3]
	outH := (height+2*p.padding-p.kernelSize)/p.stride + 1
	outW := (width+2*p.padding-p.kernelSize)/p.stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("maxpool2d: input %v too small for kernel %d stride %d", shape, p.kernelSize, p.stride))
	}

	out := tensor.ZerosOn(tensor.Shape{batch, channels, outH, outW}, input.Device())
	inData := input.Data()
	outData := out.Data()

	for n := 0; n < batch; n++ {
		for ch := 0; ch < channels; ch++ {
			plane := inData[(n*channels+ch)*height*width : (n*channels+ch+1)*height*width]
			dst := outData[(n*channels+ch)*outH*outW : (n*channels+ch+1)*outH*outW]
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					maxv := float32(math.Inf(-1))
					for ky := 0; ky < p.kernelSize; ky++ {
						iy := oy*p.stride + ky - p.padding
						if iy < 0 || iy >= height {
							continue
						}
						for kx := 0; kx < p.kernelSize; kx++ {
							ix := ox*p.stride + kx - p.padding
							if ix < 0 || ix >= width {
								continue
							}
							if v := plane[iy*width+ix]; v > maxv {
								maxv = v
							}
						}
					}
					dst[oy*outW+ox] = maxv
				}
			}
		}
	}
	return out
}

// Parameters returns nil; pooling has no parameters.
func (p *MaxPool2d) Parameters() []*Parameter { return nil }

// StateDict returns nil; pooling is stateless.
func (p *MaxPool2d) StateDict() map[string]*tensor.Tensor { return nil }

// LoadStateDict is a no-op for MaxPool2d.
func (p *MaxPool2d) LoadStateDict(map[string]*tensor.Tensor) error { return nil }

// AdaptiveAvgPool2d averages each channel down to a fixed output size,
// regardless of the input's spatial dimensions. The window for output cell i
// spans [floor(i*H/outH), ceil((i+1)*H/outH)), matching torch semantics.
type AdaptiveAvgPool2d struct {
	outH int
	outW int
}

// NewAdaptiveAvgPool2d creates an AdaptiveAvgPool2d with the given output
// size.
func NewAdaptiveAvgPool2d(outH, outW int) *AdaptiveAvgPool2d {
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("adaptiveavgpool2d: invalid output %dx%d", outH, outW))
	}
	return &AdaptiveAvgPool2d{outH: outH, outW: outW}
}

// Forward averages [N, C, H, W] down to [N, C, outH, outW].
func (p *AdaptiveAvgPool2d) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("adaptiveavgpool2d: expected 4D input [N,C,H,W], got %v", shape))
	}
	batch, channels, height, width := shape[0], shape[1], shape[2], shape[3]

	out := tensor.ZerosOn(tensor.Shape{batch, channels, p.outH, p.outW}, input.Device())
	inData := input.Data()
	outData := out.Data()

	for n := 0; n < batch; n++ {
		for ch := 0; ch < channels; ch++ {
			plane := inData[(n*channels+ch)*height*width : (n*channels+ch+1)*height*width]
			dst := outData[(n*channels+ch)*p.outH*p.outW : (n*channels+ch+1)*p.outH*p.outW]
			for oy := 0; oy < p.outH; oy++ {
				y0 := oy * height / p.outH
				y1 := ((oy+1)*height + p.outH - 1) / p.outH
				for ox := 0; ox < p.outW; ox++ {
					x0 := ox * width / p.outW
					x1 := ((ox+1)*width + p.outW - 1) / p.outW

					var sum float32
					for iy := y0; iy < y1; iy++ {
						for ix := x0; ix < x1; ix++ {
							sum += plane[iy*width+ix]
						}
					}
					dst[oy*p.outW+ox] = sum / float32((y1-y0)*(x1-x0))
				}
			}
		}
	}
	return out
}

// Parameters returns nil; pooling has no parameters.
func (p *AdaptiveAvgPool2d) Parameters() []*Parameter { return nil }

// StateDict returns nil; pooling is stateless.
func (p *AdaptiveAvgPool2d) StateDict() map[string]*tensor.Tensor { return nil }

// LoadStateDict is a no-op for AdaptiveAvgPool2d.
func (p *AdaptiveAvgPool2d) LoadStateDict(map[string]*tensor.Tensor) error { return nil }
